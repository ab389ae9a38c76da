package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"uniswap-econ-lab/internal/eventstudy"
	"uniswap-econ-lab/internal/reporting"
)

func main() {
	panelPath := flag.String("panel", "", "Path to the long-format panel CSV")
	outcome := flag.String("outcome", "y", "Outcome column")
	event := flag.String("event", "event", "Treatment indicator column")
	group := flag.String("group", "group", "Entity column")
	cohort := flag.String("cohort", "cohort", "Cohort column")
	relTime := flag.String("reltime", "reltime", "Relative-time column")
	timeCol := flag.String("time", "time", "Calendar-time column")
	covariates := flag.String("covariates", "", "Comma-separated covariate columns")
	controlCohort := flag.Int("control-cohort", 0, "Control cohort label (requires -has-control-cohort)")
	hasControlCohort := flag.Bool("has-control-cohort", false, "Use -control-cohort instead of the default selection")
	balanceCheck := flag.Bool("balance-check", false, "Reject panels not balanced on (group, time)")
	vcov := flag.String("vcov", string(eventstudy.VCovRobust), "Variance estimator: robust or homoskedastic")
	alpha := flag.Float64("alpha", eventstudy.DefaultAlpha, "Two-sided significance level")
	tolerant := flag.Bool("tolerant", false, "Return an empty table instead of failing when every cell is absorbed")
	out := flag.String("out", "", "Write the coefficient table CSV here (default stdout)")
	markdown := flag.String("markdown", "", "Write a Markdown report here")
	title := flag.String("title", "", "Report title")

	flag.Parse()

	logger := log.New(os.Stderr, "[eventstudy] ", log.LstdFlags)

	if *panelPath == "" {
		logger.Fatal("--panel is required")
	}

	panel, err := eventstudy.LoadPanelCSV(*panelPath)
	if err != nil {
		logger.Fatalf("Load panel: %v", err)
	}
	logger.Printf("Panel loaded: %d rows, %d columns", panel.Len(), len(panel.Columns()))

	cfg := eventstudy.Config{
		Outcome:      *outcome,
		Event:        *event,
		Group:        *group,
		Cohort:       *cohort,
		RelTime:      *relTime,
		Time:         *timeCol,
		VCov:         eventstudy.VCovType(*vcov),
		BalanceCheck: *balanceCheck,
		Tolerant:     *tolerant,
		Alpha:        *alpha,
	}
	if *covariates != "" {
		for _, c := range strings.Split(*covariates, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cfg.Covariates = append(cfg.Covariates, c)
			}
		}
	}
	if *hasControlCohort {
		cfg.ControlCohort = controlCohort
	}

	res, err := eventstudy.Estimate(panel, cfg)
	if err != nil {
		logger.Fatalf("Estimate: %v", err)
	}

	logger.Printf("Control cohort: %d", res.ControlCohort)
	if len(res.Dropped) > 0 {
		logger.Printf("Absorbed cells (%d): %s", len(res.Dropped), strings.Join(res.Dropped, ", "))
	}

	csvOut := reporting.RenderEffectsCSV(res.Effects)
	if *out != "" {
		if err := os.WriteFile(*out, []byte(csvOut), 0o644); err != nil {
			logger.Fatalf("Write coefficient table: %v", err)
		}
		logger.Printf("Coefficient table written to %s", *out)
	} else {
		fmt.Print(csvOut)
	}

	if *markdown != "" {
		report := reporting.FromResult(*title, res)
		if err := os.WriteFile(*markdown, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
			logger.Fatalf("Write markdown report: %v", err)
		}
		logger.Printf("Markdown report written to %s", *markdown)
	}
}
