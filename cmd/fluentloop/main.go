// fluentloop is a terminal client for real-time spoken English practice.
// It streams microphone audio to a speech-to-speech model, plays the reply,
// scores each exchange in the background, and keeps a local history of
// sessions and mined vocabulary.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fluentloop/fluentloop/internal/dotenv"
	"github.com/fluentloop/fluentloop/pkg/coach"
	"github.com/fluentloop/fluentloop/pkg/config"
	"github.com/fluentloop/fluentloop/pkg/core/live"
	"github.com/fluentloop/fluentloop/pkg/history"
)

type options struct {
	mode       string
	scenarioID string
	topic      string
	configPath string
	showStats  bool
	review     bool
	debug      bool
}

func main() {
	os.Exit(runMain())
}

func runMain() int {
	var opts options
	flag.StringVar(&opts.mode, "mode", config.ModePractice, "conversation mode: practice, endless, scenario, correction, converter")
	flag.StringVar(&opts.scenarioID, "scenario", "job-interview", "scenario id for -mode scenario")
	flag.StringVar(&opts.topic, "topic", "", "starting topic for -mode endless (generated when empty)")
	flag.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flag.BoolVar(&opts.showStats, "stats", false, "print practice stats and recent sessions, then exit")
	flag.BoolVar(&opts.review, "review", false, "run a vocabulary review round, then exit")
	flag.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flag.Parse()

	if err := dotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	level := slog.LevelInfo
	if opts.debug || strings.EqualFold(cfg.LogLevel, "debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, err := history.Open(cfg.Data.Path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer store.Close()

	if opts.showStats {
		return printStats(store)
	}
	if opts.review {
		return reviewVocab(store, os.Stdin, os.Stdout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := runSession(ctx, cfg, opts, store, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func runSession(ctx context.Context, cfg config.Config, opts options, store *history.Store, logger *slog.Logger) error {
	mode, err := cfg.Mode(opts.mode)
	if err != nil {
		return err
	}
	apiKey, err := cfg.APIKey()
	if err != nil {
		return err
	}

	// Converter mode scores nothing live but still needs the coach for the
	// rewrite after the dictation session ends.
	var tutor *coach.Client
	if mode.ScorePolicy != "off" || opts.mode == config.ModeConverter {
		tutor, err = coach.New(ctx, apiKey, coach.WithModel(cfg.CoachModel), coach.WithLogger(logger))
		if err != nil {
			return err
		}
	}

	instruction, topic, err := resolveInstruction(ctx, cfg, mode, opts, tutor)
	if err != nil {
		return err
	}

	source, err := newFFmpegSource(cfg.Audio.InputSampleRate)
	if err != nil {
		return err
	}
	sink, err := newFFplaySink(cfg.Audio.OutputSampleRate)
	if err != nil {
		source.Close()
		return err
	}
	defer sink.Close()

	engineOpts := []live.EngineOption{live.WithLogger(logger)}
	if tutor != nil {
		engineOpts = append(engineOpts, live.WithEvaluator(tutor), live.WithSummarizer(tutor))
	}
	engine := live.NewEngine(apiKey, cfg.LiveConfig(mode, instruction), source, live.NewWallClock(), sink, engineOpts...)

	if err := engine.Start(ctx); err != nil {
		return err
	}

	fmt.Println("Connected. Speak into the microphone.")
	fmt.Println("Commands: mute, unmute, end")
	if topic != "" {
		fmt.Printf("Topic: %s\n", topic)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cmdCh := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			cmdCh <- strings.ToLower(strings.TrimSpace(scanner.Text()))
		}
		close(cmdCh)
	}()

	running := true
	for running {
		select {
		case ev, ok := <-engine.Events():
			if !ok {
				running = false
				break
			}
			printEvent(ev)
		case cmd, ok := <-cmdCh:
			if !ok {
				running = false
				break
			}
			switch cmd {
			case "mute":
				engine.SetMuted(true)
				fmt.Println("[mic muted]")
			case "unmute":
				engine.SetMuted(false)
				fmt.Println("[mic live]")
			case "end":
				running = false
			case "":
			default:
				fmt.Printf("unknown command %q\n", cmd)
			}
		case <-sigCh:
			running = false
		}
	}

	endCtx, endCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer endCancel()
	result := engine.End(endCtx)

	fmt.Printf("\nSession over after %s.\n", result.Duration.Round(time.Second))
	if mode.ScorePolicy != "off" {
		fmt.Printf("Score: %d/100\n", result.Score)
		if result.Feedback != "" {
			fmt.Println(result.Feedback)
		}
	} else {
		printTranscript(result.Transcript)
	}

	rec := history.SessionRecord{
		ID:              result.ID,
		DurationSeconds: int(result.Duration.Seconds()),
		Mode:            opts.mode,
		Topic:           topic,
		Score:           result.Score,
		Feedback:        result.Feedback,
	}
	if err := store.SaveSession(rec); err != nil {
		logger.Warn("failed to save session", "error", err)
	}

	if opts.mode == config.ModeConverter && tutor != nil {
		printConversion(endCtx, tutor, result.Transcript, logger)
		return nil
	}
	if tutor != nil && len(result.Transcript) > 0 {
		mineVocab(endCtx, tutor, store, result.Transcript, logger)
	}
	if opts.mode == config.ModeEndless && tutor != nil {
		suggestTopics(endCtx, tutor, topic)
	}
	return nil
}

// printConversion rewrites the dictated text into three English versions.
func printConversion(ctx context.Context, tutor *coach.Client, turns []live.TranscriptTurn, logger *slog.Logger) {
	input := userTranscript(turns)
	if input == "" {
		fmt.Println("Nothing dictated, nothing to convert.")
		return
	}
	conv, err := tutor.ConvertText(ctx, input)
	if err != nil {
		logger.Warn("conversion failed", "error", err)
		fmt.Println("Conversion failed; the dictated text is above.")
		return
	}
	fmt.Printf("\nCorrect:    %s\n", conv.Correct)
	fmt.Printf("Impressive: %s\n", conv.Impressive)
	fmt.Printf("Native:     %s\n", conv.Native)
	if conv.Analysis != "" {
		fmt.Printf("\n%s\n", conv.Analysis)
	}
}

// userTranscript joins the user's side of the transcript in turn order.
func userTranscript(turns []live.TranscriptTurn) string {
	var parts []string
	for _, turn := range turns {
		if turn.Role == live.RoleUser {
			parts = append(parts, turn.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// resolveInstruction picks the system instruction and, for endless mode,
// the conversation topic.
func resolveInstruction(ctx context.Context, cfg config.Config, mode config.ModeConfig, opts options, tutor *coach.Client) (instruction, topic string, err error) {
	switch opts.mode {
	case config.ModeScenario:
		sc, err := cfg.ScenarioByID(opts.scenarioID)
		if err != nil {
			return "", "", err
		}
		fmt.Printf("Scenario: %s (%s)\n%s\n", sc.Title, sc.Difficulty, sc.Description)
		return sc.SystemInstruction, sc.Title, nil
	case config.ModeEndless:
		topic := opts.topic
		if topic == "" && tutor != nil {
			topics := tutor.NextTopics(ctx, "", coach.InterestsList)
			if len(topics) > 0 {
				topic = topics[0]
			}
		}
		if topic == "" {
			topic = "Everyday Life"
		}
		return fmt.Sprintf(mode.SystemInstruction, topic), topic, nil
	default:
		return mode.SystemInstruction, "", nil
	}
}

func printEvent(ev live.Event) {
	switch e := ev.(type) {
	case *live.TurnFinalizedEvent:
		speaker := "You"
		if e.Role == live.RoleModel {
			speaker = "AI"
		}
		fmt.Printf("%s: %s\n", speaker, e.Text)
	case *live.ScoreUpdatedEvent:
		sign := "+"
		if e.Delta < 0 {
			sign = ""
		}
		fmt.Printf("[score %d (%s%d) %s]\n", e.Score, sign, e.Delta, e.Reason)
	case *live.StateChangedEvent:
		if e.To == live.StateError {
			fmt.Println("[connection lost]")
		}
	case *live.ErrorEvent:
		fmt.Printf("[error: %v]\n", e.Err)
	}
}

func printTranscript(turns []live.TranscriptTurn) {
	if len(turns) == 0 {
		fmt.Println("No transcript captured.")
		return
	}
	fmt.Println("Transcript:")
	for _, turn := range turns {
		speaker := "You"
		if turn.Role == live.RoleModel {
			speaker = "AI"
		}
		fmt.Printf("  %s: %s\n", speaker, turn.Text)
	}
}

func mineVocab(ctx context.Context, tutor *coach.Client, store *history.Store, turns []live.TranscriptTurn, logger *slog.Logger) {
	known, err := store.Words()
	if err != nil {
		logger.Warn("failed to load known words", "error", err)
	}
	var sb strings.Builder
	for _, turn := range turns {
		speaker := "User"
		if turn.Role == live.RoleModel {
			speaker = "AI"
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, turn.Text)
	}
	cards, err := tutor.MineVocabulary(ctx, sb.String(), known)
	if err != nil {
		logger.Warn("vocabulary mining failed", "error", err)
		return
	}
	for _, card := range cards {
		item := history.VocabItem{
			Word:            card.Word,
			Definition:      card.Definition,
			ExampleSentence: card.ExampleSentence,
			Context:         card.Context,
		}
		if err := store.AddVocab(item); err != nil {
			logger.Warn("failed to save vocab card", "word", card.Word, "error", err)
			continue
		}
		fmt.Printf("New word: %s - %s\n", card.Word, card.Definition)
	}
}

func suggestTopics(ctx context.Context, tutor *coach.Client, current string) {
	topics := tutor.NextTopics(ctx, current, coach.InterestsList)
	if len(topics) == 0 {
		return
	}
	fmt.Println("Next time, try talking about:")
	for _, topic := range topics {
		fmt.Printf("  - %s\n", topic)
	}
}

func printStats(store *history.Store) int {
	stats, err := store.Stats(time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	fmt.Printf("Streak: %d day(s)\n", stats.StreakDays)
	fmt.Printf("Practice time: %d minute(s)\n", stats.TotalMinutes)
	fmt.Printf("Average score: %d/100\n", stats.AverageScore)
	fmt.Printf("Sessions completed: %d\n", stats.SessionsCompleted)

	sessions, err := store.RecentSessions(10)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	if len(sessions) > 0 {
		fmt.Println("\nRecent sessions:")
		for _, s := range sessions {
			line := fmt.Sprintf("  %s  %-10s  %3d/100", s.Date.Format("2006-01-02"), s.Mode, s.Score)
			if s.Topic != "" {
				line += "  " + s.Topic
			}
			fmt.Println(line)
		}
	}
	return 0
}

// reviewVocab runs one spaced-repetition round over the due cards.
func reviewVocab(store *history.Store, in io.Reader, out io.Writer) int {
	due, err := store.DueVocab(time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	if len(due) == 0 {
		fmt.Fprintln(out, "No cards due. Come back tomorrow.")
		return 0
	}

	scanner := bufio.NewScanner(in)
	for i, card := range due {
		fmt.Fprintf(out, "\n[%d/%d] %s\n", i+1, len(due), card.Word)
		fmt.Fprint(out, "Press enter to reveal the definition...")
		if !scanner.Scan() {
			return 0
		}
		fmt.Fprintf(out, "%s\n", card.Definition)
		if card.ExampleSentence != "" {
			fmt.Fprintf(out, "Example: %s\n", card.ExampleSentence)
		}
		fmt.Fprint(out, "Did you remember it? [y/n] ")
		if !scanner.Scan() {
			return 0
		}
		correct := strings.HasPrefix(strings.ToLower(strings.TrimSpace(scanner.Text())), "y")
		if err := store.UpdateMastery(card.ID, correct, time.Now()); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
	}
	fmt.Fprintln(out, "\nReview complete.")
	return 0
}
