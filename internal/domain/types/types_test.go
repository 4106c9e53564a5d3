package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/fitmeasure/internal/domain/model"
	types "github.com/okian/fitmeasure/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromOutcome(t *testing.T) {
	Convey("Given a detection failure", t, func() {
		resp := types.FromOutcome(model.Failed(model.FailureDetection, "no pose landmarks detected"))

		Convey("Then the wire body should match the failure shape exactly", func() {
			raw, err := json.Marshal(resp)
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual,
				`{"success":false,"error":"No pose landmarks detected","measurements":{},"confidence_scores":{}}`)
		})
	})

	Convey("Given an unhandled failure", t, func() {
		resp := types.FromOutcome(model.Failed(model.FailureUnhandled, "decode image: illegal base64 data"))

		So(resp.Success, ShouldBeFalse)
		So(resp.Error, ShouldEqual, "decode image: illegal base64 data")
		So(resp.Measurements, ShouldNotBeNil)
		So(resp.Measurements, ShouldBeEmpty)
		So(resp.ConfidenceScores, ShouldBeEmpty)
	})

	Convey("Given a success", t, func() {
		out := model.Succeeded(model.Result{
			Garment:      model.Pants,
			Measurements: map[string]float64{model.WaistWidth: 40},
			Confidence:   map[string]float64{model.WaistWidth: 0.85},
			ScaleFactor:  1.25,
			Size:         model.SizeMD,
		}, "data:image/png;base64,AA==")
		resp := types.FromOutcome(out)

		So(resp.Success, ShouldBeTrue)
		So(resp.Unit, ShouldEqual, "cm")
		So(resp.ScaleFactor, ShouldEqual, 1.25)
		So(resp.GarmentType, ShouldEqual, "pants")
		So(resp.Size, ShouldEqual, "md")
		So(resp.Visualization, ShouldStartWith, "data:image/png;base64,")
		So(resp.Measurements, ShouldResemble, map[string]float64{model.WaistWidth: 40})
		So(resp.Error, ShouldBeEmpty)
	})
}

func TestFromJob(t *testing.T) {
	Convey("Given jobs in different states", t, func() {
		out := model.Failed(model.FailureUnhandled, "boom")

		Convey("A queued job should carry no output", func() {
			resp := types.FromJob(model.Job{ID: "a", Status: model.StatusInQueue, Output: &out})
			So(resp.Status, ShouldEqual, "IN_QUEUE")
			So(resp.Output, ShouldBeNil)
		})

		Convey("A terminal job should carry its output", func() {
			resp := types.FromJob(model.Job{ID: "b", Status: model.StatusFailed, Output: &out})
			So(resp.ID, ShouldEqual, "b")
			So(resp.Output, ShouldNotBeNil)
			So(resp.Output.Error, ShouldEqual, "boom")
		})
	})
}

func TestMeasureRequest(t *testing.T) {
	Convey("Given a run envelope", t, func() {
		var req types.RunRequest
		err := json.Unmarshal([]byte(`{"input":{"image":"AAAA","garment_type":"jacket"}}`), &req)
		So(err, ShouldBeNil)

		in := req.Input.Input()
		So(in.Image, ShouldEqual, "AAAA")
		So(in.GarmentType, ShouldEqual, "jacket")
	})
}
