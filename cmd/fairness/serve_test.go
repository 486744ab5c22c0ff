package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/okian/fairness/internal/cli"
	"github.com/okian/fairness/internal/config"
	"github.com/okian/fairness/internal/domain/types"
	"github.com/okian/fairness/internal/integrity"
	"github.com/okian/fairness/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func serveConfig() *config.Config {
	cfg := config.New()
	cfg.ModelPath = goldenPath
	cfg.ExpectedHash = goldenHash
	cfg.WorkerCount = 2
	cfg.QueueSize = 64
	return cfg
}

func TestServe(t *testing.T) {
	Convey("Given a server on a loopback listener", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		base := "http://" + ln.Addr().String()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- serve(ctx, serveConfig(), ln, nil, nil) }()
		defer func() {
			cancel()
			<-done
		}()

		client := &http.Client{Timeout: 5 * time.Second}
		var resp *http.Response
		for range 50 {
			if resp, err = client.Get(base + "/healthz"); err == nil && resp.StatusCode == http.StatusOK {
				break
			}
			if resp != nil {
				_ = resp.Body.Close()
			}
			time.Sleep(20 * time.Millisecond)
		}
		So(err, ShouldBeNil)
		So(resp.StatusCode, ShouldEqual, http.StatusOK)
		_ = resp.Body.Close()

		Convey("When a round is posted", func() {
			body := `{"validators":` + roundJSON + `}`
			resp, err := client.Post(base+"/rounds", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			raw, _ := io.ReadAll(resp.Body)

			Convey("Then the ranking comes back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var round types.Round
				So(json.Unmarshal(raw, &round), ShouldBeNil)
				So(round.ModelHash, ShouldEqual, goldenHash)
				So(round.Ranking[0].ValidatorID, ShouldEqual, "top")
				So(round.Ranking[1].Score, ShouldEqual, 7800)
			})
		})

		Convey("When the OpenAPI document is requested", func() {
			resp, err := client.Get(base + "/openapi.yaml")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it is served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the context is cancelled", func() {
			cancel()

			Convey("Then serve shuts down cleanly", func() {
				So(<-done, ShouldBeNil)
				done <- nil
			})
		})
	})
}

func pinned(hash string) rereadFunc {
	return func(context.Context) (*config.Config, error) {
		cfg := serveConfig()
		cfg.ExpectedHash = hash
		return cfg, nil
	}
}

func TestReloadModel(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx := context.Background()
		svc, err := cli.StartService(ctx, serveConfig())
		So(err, ShouldBeNil)
		defer svc.Stop()
		log := logger.Named("test")

		Convey("When the configured pin no longer matches", func() {
			err := reloadModel(ctx, svc, goldenPath, pinned(strings.Repeat("0", 64)), log)

			Convey("Then the error is returned and the previous model stays active", func() {
				So(errors.Is(err, integrity.ErrIntegrity), ShouldBeTrue)
				So(svc.ModelHash(), ShouldEqual, goldenHash)
			})
		})

		Convey("When the configuration cannot be read", func() {
			failing := func(context.Context) (*config.Config, error) { return nil, config.ErrLoadConfig }
			err := reloadModel(ctx, svc, goldenPath, failing, log)

			Convey("Then the read error is returned", func() {
				So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
				So(svc.ModelHash(), ShouldEqual, goldenHash)
			})
		})

		Convey("When the configured pin matches", func() {
			err := reloadModel(ctx, svc, goldenPath, pinned(goldenHash), log)

			Convey("Then the reload succeeds", func() {
				So(err, ShouldBeNil)
				So(svc.ModelHash(), ShouldEqual, goldenHash)
			})
		})
	})
}
