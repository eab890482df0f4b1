package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/syedazmehaider/maxlife-diet-planner/internal/config"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/dietapi"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/logger"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/nutrition"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/patient"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/upload"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/workbench"
)

const usage = `usage: dietctl <command> [flags] [files...]

commands:
  estimate   print the daily calorie estimate for the patient
  extract    send files to the extraction endpoint and print the text
  plan       extract, then generate and print a diet plan
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		die("%v", err)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

type options struct {
	patient  patient.Patient
	backend  string
	apiKey   string
	timeout  time.Duration
	asJSON   bool
	verbose  bool
	files    []string
	maxBytes int64
}

func parseFlags(cmd string, args []string, cfg *config.Config) (*options, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	p := patient.New()

	fs.StringVar(&p.Name, "name", "", "patient name")
	fs.StringVar(&p.Age, "age", "", "age in years")
	fs.StringVar(&p.Sex, "sex", p.Sex, "male or female")
	fs.StringVar(&p.Weight, "weight", "", "weight in kg")
	fs.StringVar(&p.Height, "height", "", "height in cm")
	activity := fs.String("activity", string(p.Activity), "Sedentary, Lightly active, Active or Very Active")
	fs.StringVar(&p.Allergies, "allergies", "", "comma-separated allergies")
	preference := fs.String("preference", string(p.Preference), "dietary preference")
	fs.StringVar(&p.Notes, "notes", "", "free-text notes")

	opts := &options{maxBytes: cfg.MaxUploadBytes()}
	fs.StringVar(&opts.backend, "backend", cfg.BackendURL, "diet backend base URL")
	fs.StringVar(&opts.apiKey, "api-key", cfg.BackendAPIKey, "bearer token for the backend")
	fs.DurationVar(&opts.timeout, "timeout", cfg.BackendTimeout, "backend request timeout")
	fs.BoolVar(&opts.asJSON, "json", false, "print the session as JSON")
	fs.BoolVar(&opts.verbose, "v", false, "log backend calls to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	p.Activity = patient.ActivityLevel(*activity)
	p.Preference = patient.DietaryPreference(*preference)
	opts.patient = p
	opts.files = fs.Args()
	return opts, nil
}

func run(ctx context.Context, cmd string, args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	opts, err := parseFlags(cmd, args, cfg)
	if err != nil {
		return err
	}

	if opts.verbose {
		logger.Init(cfg.IsProduction())
	} else {
		logger.Use(zap.NewNop())
	}
	defer logger.Sync()

	switch cmd {
	case "estimate":
		return estimate(opts, out)
	case "extract", "plan":
		return process(ctx, cmd, opts, out)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func estimate(opts *options, out io.Writer) error {
	p := opts.patient
	kcal := nutrition.EstimateCalories(p.Weight, p.Height, p.Age, p.Sex, string(p.Activity))

	if opts.asJSON {
		return writeJSON(out, map[string]any{
			"calorie_target":      kcal,
			"activity_multiplier": nutrition.ActivityMultiplier(string(p.Activity)),
		})
	}
	_, err := fmt.Fprintf(out, "%d kcal/day\n", kcal)
	return err
}

func process(ctx context.Context, cmd string, opts *options, out io.Writer) error {
	files, err := upload.NewStager(opts.maxBytes).FromPaths(opts.files)
	if err != nil {
		return fmt.Errorf("stage files: %w", err)
	}

	client := dietapi.NewClient(opts.backend, opts.apiKey, opts.timeout)
	sess := workbench.NewSession("cli", client)
	sess.SetPatient(opts.patient)
	sess.SetFiles(files)

	if err := sess.Extract(ctx); err != nil {
		return sessionError(sess, err)
	}

	if cmd == "plan" {
		if err := sess.GenerateDiet(ctx); err != nil {
			return sessionError(sess, err)
		}
	}

	snap := sess.Snapshot()
	if opts.asJSON {
		return writeJSON(out, snap)
	}

	if cmd == "extract" {
		_, err := fmt.Fprintln(out, snap.ExtractedText)
		return err
	}
	_, err = fmt.Fprintln(out, planText(snap.Diet))
	return err
}

// sessionError prefers the message the form would have shown.
func sessionError(sess *workbench.Session, err error) error {
	if msg := sess.Snapshot().Error; msg != "" {
		return errors.New(msg)
	}
	return err
}

// planText picks the most readable form of the plan for a terminal.
func planText(d *dietapi.DietPlan) string {
	if d == nil {
		return ""
	}
	switch {
	case d.Markdown != "":
		return d.Markdown
	case d.Structured != nil:
		return d.StructuredText()
	default:
		return d.HTML
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
