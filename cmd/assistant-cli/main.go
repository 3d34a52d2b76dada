// Command assistant-cli is an interactive client for the assistant API.
// It asks questions, shows answers and sends +1/-1 feedback.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/upb/it-assistant/internal/search"
)

var (
	baseURL  = flag.String("url", "http://localhost:5000", "Assistant API base URL")
	dataPath = flag.String("data", "./data/data.csv", "Dataset used for --random questions")
	random   = flag.Bool("random", false, "Use random questions from the dataset")
	timeout  = flag.Duration("timeout", 3*time.Minute, "HTTP timeout per request")
)

// assistantAPI is the API surface the session needs
type assistantAPI interface {
	Ask(ctx context.Context, question string) (*answer, error)
	SendFeedback(ctx context.Context, conversationID string, value int) (int, error)
}

// session runs the interactive question loop
type session struct {
	api      assistantAPI
	in       *bufio.Scanner
	out      io.Writer
	question func() string // nil reads questions from in
}

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &session{
		api: newAPIClient(*baseURL, *timeout),
		in:  bufio.NewScanner(os.Stdin),
		out: os.Stdout,
	}

	if *random {
		picker, err := newRandomQuestions(*dataPath, rand.New(rand.NewSource(time.Now().UnixNano())))
		if err != nil {
			fmt.Fprintf(os.Stderr, "assistant-cli: %v\n", err)
			os.Exit(1)
		}
		s.question = picker
	}

	s.run(ctx)
}

// newRandomQuestions returns a generator of "What is <Title>?" questions
// drawn from random dataset rows.
func newRandomQuestions(path string, rng *rand.Rand) (func() string, error) {
	docs, err := search.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	return func() string {
		doc := docs[rng.Intn(len(docs))]
		return fmt.Sprintf("What is %s?", doc.Get(search.FieldTitle))
	}, nil
}

func (s *session) run(ctx context.Context) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintln(s.out, green("Welcome to the IT Group Assistant!"))
	fmt.Fprintln(s.out, "You can exit the program at any time when prompted.")

	for ctx.Err() == nil {
		var question string
		if s.question != nil {
			question = s.question()
			fmt.Fprintf(s.out, "\n%s %s\n", bold("Random question:"), question)
		} else {
			line, ok := s.prompt(green("Enter your IT question: "))
			if !ok {
				break
			}
			question = strings.TrimSpace(line)
			if question == "" {
				fmt.Fprintln(s.out, yellow("Please enter a valid question."))
				continue
			}
		}

		resp, err := s.api.Ask(ctx, question)
		if err != nil {
			fmt.Fprintln(s.out, red(fmt.Sprintf("Error making request: %v", err)))
			fmt.Fprintln(s.out, "Failed to get response from the API. Please try again.")
		} else {
			fmt.Fprintf(s.out, "\n%s %s\n", cyan("Answer:"), resp.Answer)
			fmt.Fprintf(s.out, "Relevance: %s | %.2fs | $%.6f\n", resp.Relevance, resp.ResponseTime, resp.Cost)
			s.collectFeedback(ctx, resp.ConversationID)
		}

		if !s.confirm("Do you want to continue? [y/N]: ") {
			break
		}
	}

	fmt.Fprintln(s.out, green("Thank you for using the IT Group Assistant. Goodbye!"))
}

func (s *session) collectFeedback(ctx context.Context, conversationID string) {
	fmt.Fprintln(s.out, "How would you rate this response?")
	fmt.Fprintln(s.out, "  1) +1 (Positive)")
	fmt.Fprintln(s.out, "  2) -1 (Negative)")
	fmt.Fprintln(s.out, "  3) Pass (Skip feedback)")

	line, _ := s.prompt("Choice [3]: ")

	var value int
	switch strings.TrimSpace(line) {
	case "1", "+1":
		value = 1
	case "2", "-1":
		value = -1
	default:
		fmt.Fprintln(s.out, "Feedback skipped.")
		return
	}

	status, err := s.api.SendFeedback(ctx, conversationID, value)
	if err != nil {
		fmt.Fprintf(s.out, "Error sending feedback: %v\n", err)
		fmt.Fprintln(s.out, "Failed to send feedback.")
		return
	}
	fmt.Fprintf(s.out, "Feedback sent. Status code: %d\n", status)
}

func (s *session) prompt(label string) (string, bool) {
	fmt.Fprint(s.out, label)
	if !s.in.Scan() {
		return "", false
	}
	return s.in.Text(), true
}

func (s *session) confirm(label string) bool {
	line, ok := s.prompt(label)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
