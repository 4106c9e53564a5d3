package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/fitmeasure/internal/adapters/pose"
	service "github.com/okian/fitmeasure/internal/app"
	"github.com/okian/fitmeasure/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// gatedProcessor blocks every job until release is closed.
type gatedProcessor struct {
	started chan string
	release chan struct{}
}

func newGatedProcessor() *gatedProcessor {
	return &gatedProcessor{started: make(chan string, 16), release: make(chan struct{})}
}

func (g *gatedProcessor) Process(ctx context.Context, j model.Job) model.Outcome {
	g.started <- j.ID
	select {
	case <-g.release:
	case <-ctx.Done():
	}
	return model.Failed(model.FailureDetection, "no pose landmarks detected")
}

func waitForStatus(svc *service.Service, id string, want model.JobStatus) model.Job {
	deadline := time.Now().Add(5 * time.Second)
	for {
		j, err := svc.Status(context.Background(), id)
		if err == nil && j.Status == want {
			return j
		}
		if time.Now().After(deadline) {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.NewPipeline(pose.NewFixture(standing())),
			service.WithWorkerCount(2),
			service.WithQueueSize(8),
			service.WithJobStoreSize(100),
			service.WithRequestTimeout(5*time.Second),
		)
		ctx := context.Background()

		Convey("When it has not been started", func() {
			_, err := svc.Submit(ctx, model.JobInput{Image: photo(4, 4, 0)})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			_, err = svc.Status(ctx, "anything")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			Convey("Then stats should describe the running service", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, 2)
				So(stats["queueSize"], ShouldEqual, 8)
				So(stats["queueLength"], ShouldEqual, 0)
				So(stats, ShouldContainKey, "jobs")
			})

			Convey("And stopping should refuse new jobs", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.Stop(ctx), ShouldBeNil)
				_, err := svc.Submit(ctx, model.JobInput{Image: photo(4, 4, 0)})
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_Measure(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(service.NewPipeline(pose.NewFixture(standing())))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When measuring synchronously", func() {
			o, err := svc.Measure(ctx, model.JobInput{Image: photo(400, 400, 1), GarmentType: "tshirt"})

			Convey("Then the outcome should carry the measurements", func() {
				So(err, ShouldBeNil)
				So(o.Success, ShouldBeTrue)
				So(o.Result.Measurements[model.ChestWidth], ShouldEqual, 50.0)
				So(o.Result.Size, ShouldEqual, model.SizeMD)
			})
		})

		Convey("When submitting asynchronously", func() {
			j, err := svc.Submit(ctx, model.JobInput{Image: photo(400, 400, 2), GarmentType: "jacket"})
			So(err, ShouldBeNil)
			So(j.ID, ShouldNotBeBlank)
			So(j.Status, ShouldEqual, model.StatusInQueue)

			Convey("Then the job should eventually complete", func() {
				done := waitForStatus(svc, j.ID, model.StatusCompleted)
				So(done.Status, ShouldEqual, model.StatusCompleted)
				So(done.Output, ShouldNotBeNil)
				So(done.Output.Result.Garment, ShouldEqual, model.Jacket)
			})
		})

		Convey("When the job fails", func() {
			j, err := svc.Submit(ctx, model.JobInput{Image: "not an image"})
			So(err, ShouldBeNil)

			done := waitForStatus(svc, j.ID, model.StatusFailed)
			So(done.Status, ShouldEqual, model.StatusFailed)
			So(done.Output.FailureKind, ShouldEqual, model.FailureUnhandled)
		})

		Convey("When a submission is repeated with the same idempotency key", func() {
			in := model.JobInput{Image: photo(400, 400, 3), IdempotencyKey: "order-7"}
			first, err := svc.Submit(ctx, in)
			So(err, ShouldBeNil)
			again, err := svc.Submit(ctx, in)
			So(err, ShouldBeNil)

			Convey("Then the first job should be returned", func() {
				So(again.ID, ShouldEqual, first.ID)
			})

			Convey("And a synchronous measurement should reuse it", func() {
				o, err := svc.Measure(ctx, in)
				So(err, ShouldBeNil)
				So(o.Success, ShouldBeTrue)

				done := waitForStatus(svc, first.ID, model.StatusCompleted)
				So(done.Output.Result.Measurements, ShouldResemble, o.Result.Measurements)
				So(svc.GetStats()["idempotencyKeys"], ShouldEqual, int64(1))
			})

			Convey("And a different key should start a new job", func() {
				other, err := svc.Submit(ctx, model.JobInput{Image: in.Image, IdempotencyKey: "order-8"})
				So(err, ShouldBeNil)
				So(other.ID, ShouldNotEqual, first.ID)
			})
		})

		Convey("When asking for an unknown job", func() {
			_, err := svc.Status(ctx, "3f1c0e8e-0000-4000-8000-000000000000")
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a service whose only worker is stuck", t, func() {
		ctx := context.Background()
		gate := newGatedProcessor()
		svc := service.New(gate,
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
			service.WithRequestTimeout(20*time.Millisecond),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() {
			close(gate.release)
			_ = svc.Stop(ctx)
		}()

		first, err := svc.Submit(ctx, model.JobInput{Image: "AA=="})
		So(err, ShouldBeNil)
		So(<-gate.started, ShouldEqual, first.ID)

		Convey("Then the job should be reported in progress", func() {
			j := waitForStatus(svc, first.ID, model.StatusInProgress)
			So(j.Status, ShouldEqual, model.StatusInProgress)
		})

		Convey("Then submissions should eventually be refused as busy", func() {
			var busy error
			for i := 0; i < 5 && busy == nil; i++ {
				_, busy = svc.Submit(ctx, model.JobInput{Image: "AA=="})
			}
			So(errors.Is(busy, service.ErrBusy), ShouldBeTrue)
		})

		Convey("Then a refused keyed submission should not hold its key", func() {
			var busy error
			for i := 0; i < 5 && busy == nil; i++ {
				_, busy = svc.Submit(ctx, model.JobInput{Image: "AA=="})
			}
			So(errors.Is(busy, service.ErrBusy), ShouldBeTrue)

			_, err := svc.Submit(ctx, model.JobInput{Image: "AA==", IdempotencyKey: "retry-me"})
			So(errors.Is(err, service.ErrBusy), ShouldBeTrue)
			_, err = svc.Submit(ctx, model.JobInput{Image: "AA==", IdempotencyKey: "retry-me"})
			So(errors.Is(err, service.ErrBusy), ShouldBeTrue)
		})

		Convey("Then a synchronous measurement should time out", func() {
			_, err := svc.Measure(ctx, model.JobInput{Image: "AA=="})
			So(errors.Is(err, service.ErrTimeout), ShouldBeTrue)
		})
	})
}

func TestService_ConcurrentIdempotentSubmit(t *testing.T) {
	Convey("Given many callers racing with one idempotency key", t, func() {
		ctx := context.Background()
		gate := newGatedProcessor()
		svc := service.New(gate, service.WithWorkerCount(1), service.WithQueueSize(64))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() {
			close(gate.release)
			_ = svc.Stop(ctx)
		}()

		const callers = 16
		ids := make([]string, callers)
		errs := make([]error, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				j, err := svc.Submit(ctx, model.JobInput{Image: "AA==", IdempotencyKey: "same-order"})
				ids[i], errs[i] = j.ID, err
			}(i)
		}
		wg.Wait()

		Convey("Then every caller should get the same job", func() {
			for i := 0; i < callers; i++ {
				So(errs[i], ShouldBeNil)
				So(ids[i], ShouldEqual, ids[0])
			}
			j, err := svc.Status(ctx, ids[0])
			So(err, ShouldBeNil)
			So(j.ID, ShouldEqual, ids[0])
		})

		Convey("Then only that job should reach a worker", func() {
			So(<-gate.started, ShouldEqual, ids[0])
			select {
			case extra := <-gate.started:
				So(extra, ShouldBeEmpty)
			case <-time.After(50 * time.Millisecond):
			}
			stats := svc.GetStats()
			So(stats["idempotencyKeys"], ShouldEqual, int64(1))
		})
	})
}
