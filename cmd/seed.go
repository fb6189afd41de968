package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/studyloop/studyloop/internal/question"
	"github.com/studyloop/studyloop/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed [file.json]",
	Short: "Load questions into the question bank",
	Long:  "Load a JSON array of questions into the question bank. With no file, the built-in sample set is loaded.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		qs := question.SampleSet()
		if len(args) == 1 {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			qs = nil
			if err := json.Unmarshal(data, &qs); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
		}
		for i, q := range qs {
			if q.ID == "" || q.Subject == "" || q.Prompt == "" || q.Answer == "" || !q.Tier.Known() {
				return fmt.Errorf("question %d is incomplete", i)
			}
		}

		if err := st.Questions().PutQuestions(cmd.Context(), qs); err != nil {
			return err
		}
		fmt.Printf("seeded %d questions\n", len(qs))
		return nil
	},
}
