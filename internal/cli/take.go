package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"

	"github.com/spf13/cobra"
)

const takeHelp = `commands: <n> choose option n (text questions: type the answer)
          :n next  :p previous  :g <n> go to question n  :s submit  :q quit`

// NewTakeCmd runs a timed quiz attempt in the terminal.
func NewTakeCmd(configPath *string) *cobra.Command {
	var quizID, user string
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			b, err := openBackends(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()
			return runTake(cmd.Context(), newService(b, cfg), quizID, user, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&quizID, "quiz", "", "quiz id")
	cmd.Flags().StringVar(&user, "user", "local", "participant identity")
	_ = cmd.MarkFlagRequired("quiz")
	return cmd
}

func runTake(ctx context.Context, service *app.SessionService, quizID, user string, in io.Reader, out io.Writer) error {
	state, err := service.Start(ctx, quizID, user)
	if err != nil {
		return err
	}
	events, cancel, err := service.Subscribe(ctx, quizID, user)
	if err != nil {
		return err
	}
	defer cancel()

	fmt.Fprintf(out, "%s (%d questions, %s)\n%s\n\n", state.Title, state.QuestionCount, state.Clock, takeHelp)
	printQuestion(out, state)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			service.Leave(context.Background(), quizID, user)
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch event.Type {
			case domain.EventTick:
				if r := event.State.Remaining; r%60 == 0 || r <= 10 {
					fmt.Fprintf(out, "  time left %s\n", event.State.Clock)
				}
			case domain.EventResult:
				fmt.Fprintln(out, "\ntime is up, quiz submitted")
				printResult(out, *event.Result)
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				service.Leave(ctx, quizID, user)
				fmt.Fprintln(out, "input closed, attempt abandoned")
				return nil
			}
			done, err := takeCommand(ctx, service, quizID, user, strings.TrimSpace(line), out)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if done {
				return nil
			}
		}
	}
}

// takeCommand applies one input line and reports whether the attempt is over.
func takeCommand(ctx context.Context, service *app.SessionService, quizID, user, line string, out io.Writer) (bool, error) {
	var (
		state domain.SessionState
		err   error
	)
	switch {
	case line == "":
		return false, nil
	case line == ":n":
		state, err = service.Next(ctx, quizID, user)
	case line == ":p":
		state, err = service.Previous(ctx, quizID, user)
	case strings.HasPrefix(line, ":g"):
		n, convErr := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, ":g")))
		if convErr != nil {
			return false, fmt.Errorf("usage: :g <question number>")
		}
		state, err = service.GoTo(ctx, quizID, user, n-1)
	case line == ":s":
		result, err := service.Submit(ctx, quizID, user)
		if err != nil {
			return false, err
		}
		printResult(out, result)
		return true, nil
	case line == ":q":
		if err := service.Abandon(ctx, quizID, user); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "attempt abandoned")
		return true, nil
	case strings.HasPrefix(line, ":"):
		fmt.Fprintln(out, takeHelp)
		return false, nil
	default:
		state, err = service.State(ctx, quizID, user)
		if err != nil {
			return false, err
		}
		value, ok := answerValue(state.Question, line)
		if !ok {
			return false, fmt.Errorf("choose an option between 1 and %d", len(state.Question.Options))
		}
		state, err = service.Answer(ctx, quizID, user, state.Question.ID, value)
	}
	if err != nil {
		return false, err
	}
	printQuestion(out, state)
	return false, nil
}

// answerValue maps input to an option for choice questions, accepting either
// the option number or its exact text.
func answerValue(q domain.QuestionView, line string) (string, bool) {
	if q.Kind == domain.KindText {
		return line, true
	}
	if n, err := strconv.Atoi(line); err == nil {
		if n < 1 || n > len(q.Options) {
			return "", false
		}
		return q.Options[n-1], true
	}
	for _, opt := range q.Options {
		if strings.EqualFold(opt, line) {
			return opt, true
		}
	}
	return "", false
}

func printQuestion(out io.Writer, state domain.SessionState) {
	q := state.Question
	fmt.Fprintf(out, "Question %d/%d [%s, %d pt] %d%% time left %s\n", q.Number, state.QuestionCount, q.Kind, q.Points, state.Progress, state.Clock)
	fmt.Fprintln(out, q.Prompt)
	for i, opt := range q.Options {
		marker := " "
		if opt == q.Answer {
			marker = "*"
		}
		fmt.Fprintf(out, " %s %d) %s\n", marker, i+1, opt)
	}
	if q.Kind == domain.KindText && q.Answer != "" {
		fmt.Fprintf(out, "   your answer: %s\n", q.Answer)
	}

	var palette strings.Builder
	for i, answered := range state.Answered {
		switch {
		case i == state.Index:
			palette.WriteString("[>]")
		case answered:
			palette.WriteString("[x]")
		default:
			palette.WriteString("[ ]")
		}
	}
	fmt.Fprintln(out, palette.String())
	if state.IsLast {
		fmt.Fprintln(out, "last question, :s to submit")
	}
}

func printResult(out io.Writer, result domain.Result) {
	fmt.Fprintf(out, "Score: %d/%d (%d%%) %s\n", result.Score, result.TotalPossible, result.Percentage, result.Verdict())
	fmt.Fprintf(out, "Correct: %d  Wrong: %d\n", result.Correct, result.Wrong)
	for _, r := range result.Review {
		answer := r.Answer
		if !r.Answered {
			answer = "-"
		}
		line := fmt.Sprintf("%2d. [%s] %s  answer: %s", r.Number, r.Status, r.Prompt, answer)
		if r.Status == domain.ReviewWrong || r.Status == domain.ReviewNotAnswered {
			line += "  correct: " + r.CorrectAnswer
		}
		fmt.Fprintln(out, line)
	}
}
