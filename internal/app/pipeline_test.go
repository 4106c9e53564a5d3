package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/fitmeasure/internal/adapters/imaging"
	"github.com/okian/fitmeasure/internal/adapters/pose"
	service "github.com/okian/fitmeasure/internal/app"
	"github.com/okian/fitmeasure/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func jobFor(image, garment string) model.Job {
	return model.Job{ID: "job-1", Input: model.JobInput{Image: image, GarmentType: garment}}
}

func TestPipeline_Process(t *testing.T) {
	ctx := context.Background()
	img := photo(400, 400, 10)

	Convey("Given a pipeline with a detector that sees a standing person", t, func() {
		detector := &countingDetector{Detector: pose.NewFixture(standing())}
		c := newMemoryCache()
		p := service.NewPipeline(detector,
			service.WithCache(c),
			service.WithRenderer(imaging.NewRenderer(imaging.WithMaxDimension(200))),
		)

		Convey("When measuring a t-shirt", func() {
			o := p.Process(ctx, jobFor(img, "tshirt"))

			Convey("Then measurements should be scaled by the shoulder anchor", func() {
				So(o.Success, ShouldBeTrue)
				So(o.Result.ScaleFactor, ShouldAlmostEqual, 1.25)
				So(o.Result.Measurements[model.ChestWidth], ShouldEqual, 50.0)
				So(o.Result.Measurements[model.SleeveLength], ShouldEqual, 125.0)
				So(o.Result.Measurements[model.BodyLength], ShouldEqual, 250.0)
				So(o.Result.Size, ShouldEqual, model.SizeMD)
				So(o.Duration, ShouldBeGreaterThan, 0)
			})

			Convey("And a PNG preview should be attached", func() {
				So(o.Visualization, ShouldStartWith, "data:image/png;base64,")
				d, err := imaging.Decode(o.Visualization, 0)
				So(err, ShouldBeNil)
				So(d.Size, ShouldResemble, model.ImageSize{Width: 200, Height: 200})
			})

			Convey("And the result should be cached", func() {
				So(c.len(), ShouldEqual, 1)

				again := p.Process(ctx, jobFor(img, "tshirt"))
				So(again.Success, ShouldBeTrue)
				So(again.Cached, ShouldBeTrue)
				So(again.Result.Measurements, ShouldResemble, o.Result.Measurements)
				So(detector.calls.Load(), ShouldEqual, 1)
			})

			Convey("And another garment for the same photo should not hit the cache", func() {
				jacket := p.Process(ctx, jobFor(img, "jacket"))
				So(jacket.Cached, ShouldBeFalse)
				So(jacket.Result.Garment, ShouldEqual, model.Jacket)
				So(detector.calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When the garment is unsupported", func() {
			o := p.Process(ctx, jobFor(img, "dress"))

			Convey("Then the t-shirt profile should be used", func() {
				So(o.Success, ShouldBeTrue)
				So(o.Result.Garment, ShouldEqual, model.TShirt)
				So(o.Result.Measurements, ShouldContainKey, model.ChestWidth)
			})
		})

		Convey("When pants need landmarks that were not detected", func() {
			o := p.Process(ctx, jobFor(img, "pants"))

			Convey("Then it should fail as unhandled naming the landmark", func() {
				So(o.Success, ShouldBeFalse)
				So(o.FailureKind, ShouldEqual, model.FailureUnhandled)
				So(o.Error, ShouldContainSubstring, "left_ankle")
			})
		})

		Convey("When the image is not base64", func() {
			o := p.Process(ctx, jobFor("%%%", "tshirt"))

			Convey("Then it should fail before detection", func() {
				So(o.FailureKind, ShouldEqual, model.FailureUnhandled)
				So(o.Error, ShouldContainSubstring, "decode image")
				So(detector.calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When the image exceeds the size limit", func() {
			small := service.NewPipeline(detector, service.WithMaxImageBytes(16))
			o := small.Process(ctx, jobFor(img, "tshirt"))
			So(o.FailureKind, ShouldEqual, model.FailureUnhandled)
			So(o.Error, ShouldContainSubstring, imaging.ErrImageTooLarge.Error())
		})

		Convey("When the cache is down", func() {
			c.failGet = true
			o := p.Process(ctx, jobFor(img, "tshirt"))

			Convey("Then the measurement should still succeed", func() {
				So(o.Success, ShouldBeTrue)
				So(o.Cached, ShouldBeFalse)
			})
		})
	})

	Convey("Given a detector that finds nobody", t, func() {
		p := service.NewPipeline(pose.NewFixture(nil))
		o := p.Process(ctx, jobFor(img, "tshirt"))

		Convey("Then the failure should be a detection failure", func() {
			So(o.Success, ShouldBeFalse)
			So(o.FailureKind, ShouldEqual, model.FailureDetection)
			So(o.Result.Measurements, ShouldBeEmpty)
		})
	})

	Convey("Given a detector whose sidecar is down", t, func() {
		p := service.NewPipeline(failingDetector{err: errors.New("connection refused")})
		o := p.Process(ctx, jobFor(img, "tshirt"))

		So(o.FailureKind, ShouldEqual, model.FailureUnhandled)
		So(o.Error, ShouldContainSubstring, "detect pose")
		So(o.Error, ShouldContainSubstring, "connection refused")
	})

	Convey("Given a detector that panics", t, func() {
		p := service.NewPipeline(panickingDetector{})

		Convey("Then the panic should become a failure", func() {
			var o model.Outcome
			So(func() { o = p.Process(ctx, jobFor(img, "tshirt")) }, ShouldNotPanic)
			So(o.FailureKind, ShouldEqual, model.FailureUnhandled)
			So(o.Error, ShouldEqual, "tensor shape mismatch")
		})
	})
}
