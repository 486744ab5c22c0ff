//go:build linux || darwin

package service_test

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	service "github.com/okian/fairness/internal/app"
	"github.com/okian/fairness/internal/domain/model"
	"github.com/okian/fairness/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_ReloadDoesNotStallRounds(t *testing.T) {
	Convey("Given a service whose model file is swapped for a pipe", t, func() {
		ctx := context.Background()
		path, hash := constantModel(t, t.TempDir(), 5000)
		svc := service.New(service.WithModel(path, hash), service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		So(os.Remove(path), ShouldBeNil)
		So(syscall.Mkfifo(path, 0o600), ShouldBeNil)
		golden, err := os.ReadFile(goldenPath)
		So(err, ShouldBeNil)

		Convey("When a reload is blocked reading the model", func() {
			reloaded := make(chan error, 1)
			go func() { reloaded <- svc.Reload(ctx, goldenHash) }()
			time.Sleep(50 * time.Millisecond)

			type outcome struct {
				round types.Round
				err   error
			}
			scored := make(chan outcome, 1)
			go func() {
				r, err := svc.ScoreRound(ctx, []model.ValidatorMetrics{model.NewValidatorMetrics("v", 9001, 5001, 8000)})
				scored <- outcome{r, err}
			}()

			var got outcome
			select {
			case got = <-scored:
			case <-time.After(2 * time.Second):
			}

			w, openErr := os.OpenFile(path, os.O_WRONLY, 0)
			So(openErr, ShouldBeNil)
			_, writeErr := w.Write(golden)
			So(writeErr, ShouldBeNil)
			So(w.Close(), ShouldBeNil)

			Convey("Then the round completes on the previous model", func() {
				So(got.err, ShouldBeNil)
				So(got.round.Results, ShouldHaveLength, 1)
				So(got.round.Results[0].Score, ShouldEqual, 6750)
			})

			Convey("Then the reload finishes once the file is readable", func() {
				So(<-reloaded, ShouldBeNil)
				So(svc.ModelHash(), ShouldEqual, goldenHash)
			})
		})
	})
}
