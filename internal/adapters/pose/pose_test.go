package pose

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/fitmeasure/internal/domain/model"
	"github.com/okian/fitmeasure/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

func sampleLandmarks() model.Landmarks {
	return model.Landmarks{
		model.LeftShoulder:  {X: 0.4, Y: 0.3, Visibility: 0.9},
		model.RightShoulder: {X: 0.6, Y: 0.3, Visibility: 0.8},
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	Convey("Given detector options", t, func() {
		Convey("An unknown provider should be rejected", func() {
			_, err := New(ctx, WithProvider("mediapipe-local"))
			So(errors.Is(err, ErrUnknownProvider), ShouldBeTrue)
		})

		Convey("The http provider should require an endpoint", func() {
			_, err := New(ctx, WithProvider(ProviderHTTP))
			So(errors.Is(err, ErrMissingEndpoint), ShouldBeTrue)
		})

		Convey("The fixture provider should load landmarks from disk", func() {
			path := filepath.Join(t.TempDir(), "pose.json")
			So(os.WriteFile(path, []byte(`{"landmarks":[{"name":"nose","x":0.5,"y":0.1,"visibility":0.99}]}`), 0o600), ShouldBeNil)

			d, err := New(ctx, WithProvider(ProviderFixture), WithFixturePath(path))
			So(err, ShouldBeNil)
			defer d.Close()

			lms, err := d.Detect(ctx, image.NewRGBA(image.Rect(0, 0, 2, 2)))
			So(err, ShouldBeNil)
			So(lms[model.Nose].Visibility, ShouldEqual, 0.99)
		})

		Convey("The fixture provider should fail without a path", func() {
			_, err := New(ctx, WithProvider(ProviderFixture))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPayload(t *testing.T) {
	Convey("Given sidecar payloads", t, func() {
		Convey("Unnamed entries should be mapped by position", func() {
			entries := make([]landmarkPayload, model.LandmarkCount)
			entries[int(model.LeftHip)] = landmarkPayload{X: 0.45, Y: 0.5, Visibility: 0.7}
			lms, err := detectionPayload{Landmarks: entries}.toLandmarks()
			So(err, ShouldBeNil)
			So(len(lms), ShouldEqual, model.LandmarkCount)
			So(lms[model.LeftHip].X, ShouldEqual, 0.45)
		})

		Convey("Too many unnamed entries should be rejected", func() {
			entries := make([]landmarkPayload, model.LandmarkCount+1)
			_, err := detectionPayload{Landmarks: entries}.toLandmarks()
			So(errors.Is(err, ErrBadPayload), ShouldBeTrue)
		})

		Convey("Unknown names should be rejected", func() {
			_, err := detectionPayload{Landmarks: []landmarkPayload{{Name: "tail"}}}.toLandmarks()
			So(errors.Is(err, ErrBadPayload), ShouldBeTrue)
		})

		Convey("A null list should mean no detection", func() {
			var p detectionPayload
			So(json.Unmarshal([]byte(`{"landmarks":null}`), &p), ShouldBeNil)
			lms, err := p.toLandmarks()
			So(err, ShouldBeNil)
			So(lms.Empty(), ShouldBeTrue)
		})

		Convey("Encoding and decoding should preserve landmarks", func() {
			lms, err := fromLandmarks(sampleLandmarks()).toLandmarks()
			So(err, ShouldBeNil)
			So(lms, ShouldResemble, sampleLandmarks())
		})
	})
}

func TestHTTPDetector(t *testing.T) {
	ctx := context.Background()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	Convey("Given a pose sidecar", t, func() {
		var gotType string
		var decoded bool
		reply := `{"landmarks":[{"name":"left_shoulder","x":0.4,"y":0.3,"visibility":0.9},{"name":"right_shoulder","x":0.6,"y":0.3,"visibility":0.8}]}`
		status := http.StatusOK

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotType = r.Header.Get("Content-Type")
			_, err := png.Decode(r.Body)
			decoded = err == nil
			w.WriteHeader(status)
			_, _ = w.Write([]byte(reply))
		}))
		defer srv.Close()

		d, err := New(ctx, WithEndpoint(srv.URL))
		So(err, ShouldBeNil)

		Convey("When the sidecar detects a body", func() {
			lms, err := d.Detect(ctx, img)

			Convey("Then landmarks should be returned", func() {
				So(err, ShouldBeNil)
				So(lms, ShouldResemble, sampleLandmarks())
				So(gotType, ShouldEqual, "image/png")
				So(decoded, ShouldBeTrue)
			})
		})

		Convey("When the sidecar finds nobody", func() {
			reply = `{"landmarks":null}`
			lms, err := d.Detect(ctx, img)
			So(err, ShouldBeNil)
			So(lms.Empty(), ShouldBeTrue)
		})

		Convey("When the sidecar fails", func() {
			status = http.StatusInternalServerError
			reply = "model not loaded"
			_, err := d.Detect(ctx, img)
			So(errors.Is(err, ErrUpstream), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "model not loaded")
		})

		Convey("When the reply is not JSON", func() {
			reply = "<html>"
			_, err := d.Detect(ctx, img)
			So(errors.Is(err, ErrBadPayload), ShouldBeTrue)
		})

		Convey("When the detector is closed", func() {
			So(d.Close(), ShouldBeNil)
			So(d.Close(), ShouldBeNil)
			_, err := d.Detect(ctx, img)
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
		})
	})
}

func TestFixtureDetector(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fixture detector", t, func() {
		d := NewFixture(sampleLandmarks())

		Convey("Detect should return a copy of the landmarks", func() {
			lms, err := d.Detect(ctx, nil)
			So(err, ShouldBeNil)
			lms[model.Nose] = model.Landmark{}

			again, _ := d.Detect(ctx, nil)
			So(again, ShouldResemble, sampleLandmarks())
		})

		Convey("It should round-trip through its JSON form", func() {
			raw, err := json.Marshal(d)
			So(err, ShouldBeNil)
			parsed, err := ParseFixture(raw)
			So(err, ShouldBeNil)
			lms, _ := parsed.Detect(ctx, nil)
			So(lms, ShouldResemble, sampleLandmarks())
		})

		Convey("An empty fixture should report no detection", func() {
			lms, err := NewFixture(nil).Detect(ctx, nil)
			So(err, ShouldBeNil)
			So(lms, ShouldBeNil)
		})

		Convey("A cancelled context should stop detection", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := d.Detect(cctx, nil)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("A closed fixture should refuse to detect", func() {
			So(d.Close(), ShouldBeNil)
			_, err := d.Detect(ctx, nil)
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
		})
	})
}
