package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"exampro-service/internal/config"
	"exampro-service/internal/domain"
	"exampro-service/internal/events"
	"github.com/spf13/cobra"
)

// NewRecalculateCmd recomputes one department or all of them.
func NewRecalculateCmd(configPath *string) *cobra.Command {
	var department string
	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Recompute and overwrite cached leaderboards",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			report, err := rt.service.RefreshCache(cmd.Context(), department)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			return report.Err()
		},
	}
	cmd.Flags().StringVar(&department, "department", "", "only recompute this department")
	return cmd
}

// NewResetCmd drops one department's cached leaderboard.
func NewResetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <department>",
		Short: "Clear a department's cached leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.service.ResetDepartment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

// NewStatusCmd prints data totals and each department's cache state.
func NewStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show data totals and cache state per department",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			report, err := rt.service.GetStatus(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

// NewPublishSubmissionCmd emits a submission event onto the configured broker.
// Only the kafka driver reaches other processes.
func NewPublishSubmissionCmd(configPath *string) *cobra.Command {
	var evt domain.SubmissionEvent
	cmd := &cobra.Command{
		Use:   "publish-submission",
		Short: "Publish an attempt submission event",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Events.Driver != events.DriverKafka {
				return fmt.Errorf("publish-submission needs events.driver=%s, got %q", events.DriverKafka, cfg.Events.Driver)
			}
			logger := newLogger(cfg)
			ps, err := events.NewPubSub(eventsConfig(cfg), logger)
			if err != nil {
				return err
			}
			defer ps.Close()

			evt.SubmittedAt = time.Now().UTC()
			if err := events.NewPublisher(ps.Publisher, cfg.Events.Topic, logger).PublishSubmission(cmd.Context(), evt); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published submission for %s in %s\n", evt.StudentID, evt.DepartmentID)
			return nil
		},
	}
	cmd.Flags().StringVar(&evt.StudentID, "student", "", "student id")
	cmd.Flags().StringVar(&evt.DepartmentID, "department", "", "department id")
	cmd.Flags().StringVar(&evt.AttemptID, "attempt", "", "attempt id")
	cmd.Flags().StringVar(&evt.ExamID, "exam", "", "exam id")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("department")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
