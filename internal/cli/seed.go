package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"timed-quiz-service/internal/app"
)

// questionFile is the YAML layout accepted by the seed command.
//
//	timer: 30
//	questions:
//	  - text: What is 2 + 2?
//	    options: ["3", "4", "5", "6"]
//	    correct: 2
type questionFile struct {
	Timer     int            `yaml:"timer"`
	Questions []seedQuestion `yaml:"questions"`
}

type seedQuestion struct {
	Text    string   `yaml:"text"`
	Options []string `yaml:"options"`
	Correct int      `yaml:"correct"` // 1-based
	Timer   int      `yaml:"timer"`
}

func parseQuestionFile(data []byte) ([]app.QuestionDraft, error) {
	var file questionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse questions file: %w", err)
	}
	drafts := make([]app.QuestionDraft, 0, len(file.Questions))
	for _, q := range file.Questions {
		timer := q.Timer
		if timer == 0 {
			timer = file.Timer
		}
		drafts = append(drafts, app.QuestionDraft{
			Text:               q.Text,
			Options:            q.Options,
			CorrectOptionIndex: q.Correct,
			Timer:              timer,
		})
	}
	return drafts, nil
}

// NewSeedCmd imports questions from a YAML file.
func NewSeedCmd(configPath *string) *cobra.Command {
	var (
		file    string
		replace bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import questions from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			drafts, err := parseQuestionFile(data)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if cfg.Postgres.URL != "" {
				if err := runMigrations(ctx, cfg, log); err != nil {
					return err
				}
			}
			b, err := openBackends(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()
			questions := b.services(cfg, log).questions

			if replace {
				n, err := questions.DeleteAll(ctx)
				if err != nil {
					return err
				}
				log.Info("existing questions removed", zap.Int64("count", n))
			}
			for i, draft := range drafts {
				if _, err := questions.Create(ctx, draft); err != nil {
					return fmt.Errorf("question %d: %w", i+1, err)
				}
			}
			log.Info("questions seeded", zap.Int("count", len(drafts)), zap.String("file", file))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "config/questions.yaml", "YAML questions file")
	cmd.Flags().BoolVar(&replace, "replace", false, "delete existing questions first")
	return cmd
}
