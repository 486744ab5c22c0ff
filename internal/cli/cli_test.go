package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	urfave "github.com/urfave/cli/v3"

	"github.com/okian/fairness/internal/cli"
	"github.com/okian/fairness/internal/config"
	"github.com/okian/fairness/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseFormat(t *testing.T) {
	Convey("Given format flag values", t, func() {
		Convey("Then json, yaml and yml are accepted", func() {
			for in, want := range map[string]string{"": "json", "JSON": "json", "yaml": "yaml", "yml": "yaml"} {
				got, err := cli.ParseFormat(in)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("Then anything else is rejected", func() {
			_, err := cli.ParseFormat("xml")
			So(errors.Is(err, cli.ErrUnknownFormat), ShouldBeTrue)
		})
	})
}

func TestEncode(t *testing.T) {
	Convey("Given a ranking entry", t, func() {
		entry := types.Entry{Rank: 1, ValidatorID: "v-1", Score: 7800}

		Convey("When encoded as JSON", func() {
			var buf bytes.Buffer
			So(cli.Encode(&buf, cli.FormatJSON, entry), ShouldBeNil)

			Convey("Then the output is indented JSON", func() {
				So(buf.String(), ShouldEqual, "{\n  \"rank\": 1,\n  \"validator_id\": \"v-1\",\n  \"score\": 7800\n}\n")
			})
		})

		Convey("When encoded as YAML", func() {
			var buf bytes.Buffer
			So(cli.Encode(&buf, cli.FormatYAML, entry), ShouldBeNil)

			Convey("Then the output is YAML", func() {
				So(buf.String(), ShouldEqual, "rank: 1\nvalidator_id: v-1\nscore: 7800\n")
			})
		})
	})
}

func TestReread(t *testing.T) {
	Convey("Given a pin in the environment and another on the command line", t, func() {
		_ = os.Setenv("FAIRNESS_EXPECTED_HASH", "env-pin")
		defer os.Unsetenv("FAIRNESS_EXPECTED_HASH")

		var got *config.Config
		cmd := &urfave.Command{
			Name:  "test",
			Flags: cli.CommonFlags(),
			Action: func(ctx context.Context, cmd *urfave.Command) error {
				var err error
				got, err = cli.Reread(ctx, cmd)
				return err
			},
		}

		Convey("When the configuration is read again", func() {
			err := cmd.Run(context.Background(), []string{"test", "--expected-hash", "flag-pin", "--model", "m.json"})

			Convey("Then the flags still win over the environment", func() {
				So(err, ShouldBeNil)
				So(got.ExpectedHash, ShouldEqual, "flag-pin")
				So(got.ModelPath, ShouldEqual, "m.json")
			})
		})

		Convey("When no flag is set", func() {
			err := cmd.Run(context.Background(), []string{"test"})

			Convey("Then the environment applies", func() {
				So(err, ShouldBeNil)
				So(got.ExpectedHash, ShouldEqual, "env-pin")
			})
		})
	})
}
