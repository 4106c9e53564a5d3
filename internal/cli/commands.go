// Package cli implements the fitmeasure command-line client. It measures
// photos either against a running service or fully in-process.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/fitmeasure/internal/adapters/imaging"
	"github.com/okian/fitmeasure/internal/adapters/pose"
	service "github.com/okian/fitmeasure/internal/app"
	"github.com/okian/fitmeasure/internal/domain/model"
	"github.com/okian/fitmeasure/internal/domain/types"
)

const (
	defaultURL         = "http://localhost:8080"
	defaultConcurrency = 4
	defaultWait        = 5 * time.Minute
)

// Report is one output line: the result for a single image file.
type Report struct {
	File   string                 `json:"file"`
	JobID  string                 `json:"job_id,omitempty"`
	Result *types.MeasureResponse `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

type common struct {
	garment       string
	concurrency   int
	visualization bool
	previewDir    string
}

func (c *common) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.garment, "garment", "g", string(model.TShirt), "Garment type: tshirt, pants or jacket")
	cmd.Flags().IntVarP(&c.concurrency, "concurrency", "c", defaultConcurrency, "Images processed at once")
	cmd.Flags().BoolVar(&c.visualization, "visualization", false, "Keep the base64 preview in the printed result")
	cmd.Flags().StringVar(&c.previewDir, "preview-dir", "", "Write each preview as <name>.preview.png into this directory")
}

// NewRootCommand builds the fitmeasure command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "fitmeasure",
		Short:         "Garment measurements from a single photo",
		Long:          "fitmeasure estimates garment measurements in centimetres from the body pose found in a photo.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSubmitCommand(), newOfflineCommand())
	return root
}

func newSubmitCommand() *cobra.Command {
	var (
		c       common
		baseURL string
		async   bool
		wait    time.Duration
		poll    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit IMAGE...",
		Short: "Measure photos with a running service",
		Long:  "Send each photo to a fitmeasure service. By default /measure is called and the reply awaited; with --async the job is queued on /run and polled on /status.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()

			client := NewClient(baseURL, WithPollInterval(poll))
			measure := func(ctx context.Context, req types.MeasureRequest) (string, types.MeasureResponse, error) {
				if !async {
					resp, err := client.Measure(ctx, req)
					return "", resp, err
				}
				j, err := client.Run(ctx, req)
				if err != nil {
					return "", types.MeasureResponse{}, err
				}
				j, err = client.Wait(ctx, j.ID)
				if err != nil {
					return j.ID, types.MeasureResponse{}, err
				}
				if j.Output == nil {
					return j.ID, types.MeasureResponse{}, fmt.Errorf("%w: job %s has no output", ErrBadReply, j.ID)
				}
				return j.ID, *j.Output, nil
			}
			return process(ctx, cmd.OutOrStdout(), files, c, measure)
		},
	}
	c.bind(cmd)
	cmd.Flags().StringVarP(&baseURL, "url", "u", defaultURL, "Base URL of the service")
	cmd.Flags().BoolVar(&async, "async", false, "Queue jobs on /run and poll for the result")
	cmd.Flags().DurationVar(&wait, "wait", defaultWait, "Give up on all jobs after this long")
	cmd.Flags().DurationVar(&poll, "poll", defaultPollInterval, "Status poll interval with --async")
	return cmd
}

func newOfflineCommand() *cobra.Command {
	var (
		c       common
		fixture string
		maxDim  int
	)
	cmd := &cobra.Command{
		Use:   "offline IMAGE...",
		Short: "Measure photos in-process using recorded landmarks",
		Long:  "Run the measurement pipeline locally. Pose detection is replaced by a landmark file in the pose sidecar reply format.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			detector, err := pose.LoadFixture(fixture)
			if err != nil {
				return err
			}
			defer detector.Close()

			pipeline := service.NewPipeline(detector,
				service.WithRenderer(imaging.NewRenderer(imaging.WithMaxDimension(maxDim))))
			measure := func(ctx context.Context, req types.MeasureRequest) (string, types.MeasureResponse, error) {
				o := pipeline.Process(ctx, model.Job{ID: uuid.NewString(), Input: req.Input()})
				return "", types.FromOutcome(o), nil
			}
			return process(cmd.Context(), cmd.OutOrStdout(), files, c, measure)
		},
	}
	c.bind(cmd)
	cmd.Flags().StringVarP(&fixture, "fixture", "f", "", "Landmark file used instead of a pose model")
	cmd.Flags().IntVar(&maxDim, "max-dim", 1024, "Longer side of the preview in pixels")
	_ = cmd.MarkFlagRequired("fixture")
	return cmd
}

type measureFunc func(ctx context.Context, req types.MeasureRequest) (jobID string, resp types.MeasureResponse, err error)

// process measures every file with bounded concurrency and prints one JSON
// line per file in argument order. It fails if any image could not be
// measured.
func process(ctx context.Context, out io.Writer, files []string, c common, measure measureFunc) error {
	if len(files) == 0 {
		return ErrNoImages
	}
	if c.concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be positive", ErrBadOptions)
	}
	if c.previewDir != "" {
		if err := os.MkdirAll(c.previewDir, 0o755); err != nil {
			return fmt.Errorf("preview dir: %w", err)
		}
	}

	reports := make([]Report, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			reports[i] = measureFile(gctx, file, c, measure)
			return nil
		})
	}
	_ = g.Wait()

	enc := json.NewEncoder(out)
	failed := 0
	for _, r := range reports {
		if r.Error != "" || r.Result == nil || !r.Result.Success {
			failed++
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d images", ErrJobFailed, failed, len(files))
	}
	return nil
}

func measureFile(ctx context.Context, file string, c common, measure measureFunc) Report {
	r := Report{File: file}
	raw, err := os.ReadFile(file)
	if err != nil {
		r.Error = err.Error()
		return r
	}

	id, resp, err := measure(ctx, types.MeasureRequest{Image: imaging.EncodeBase64(raw), GarmentType: c.garment})
	r.JobID = id
	if err != nil {
		r.Error = err.Error()
		if resp.Error == "" {
			return r
		}
	}

	if c.previewDir != "" && resp.Visualization != "" {
		if err := writePreview(c.previewDir, file, resp.Visualization); err != nil {
			r.Error = err.Error()
		}
	}
	if !c.visualization {
		resp.Visualization = ""
	}
	r.Result = &resp
	return r
}

func writePreview(dir, file, uri string) error {
	png, err := imaging.DecodeBase64(uri)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) + ".preview.png"
	return os.WriteFile(filepath.Join(dir, name), png, 0o644)
}
