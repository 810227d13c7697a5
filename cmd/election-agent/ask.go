package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"election-agent/internal/usecase"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Chat with the assistant from the terminal",
	Long: `ask runs one conversation in the terminal. With arguments it sends them as a
single question and exits; otherwise it reads questions line by line until EOF.
Type /clear to reset the conversation.`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg, os.Stderr, "text")

	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	sess := a.sessions.Create(cmd.Context())
	out := cmd.OutOrStdout()

	if len(args) > 0 {
		return askOnce(cmd, sess, out, strings.Join(args, " "))
	}

	fmt.Fprintln(out, sess.Messages()[0].Content)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/clear":
			if err := sess.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(out, sess.Messages()[0].Content)
			continue
		}
		if err := askOnce(cmd, sess, out, line); err != nil {
			return err
		}
	}
}

func askOnce(cmd *cobra.Command, sess *usecase.Session, out io.Writer, question string) error {
	res, err := sess.Send(cmd.Context(), question)
	if err != nil {
		var ue *usecase.Error
		if errors.As(err, &ue) && ue.Code == usecase.ErrorInvalidInput {
			return nil
		}
		return err
	}
	fmt.Fprintln(out, res.Reply.Content)
	return nil
}
