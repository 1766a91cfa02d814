package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gokanplan/internal/taskfile"
	"github.com/gitrdm/gokanplan/pkg/planner"
)

// ValidateCmd returns the validate command.
func ValidateCmd() *cobra.Command {
	var (
		planFile   string
		inferMutex int
	)

	cmd := &cobra.Command{
		Use:   "validate <task-file>",
		Short: "Check a task file and optionally a plan for it",
		Long: `Validate loads a task file, reports its size and whether it can be
searched backward. With --plan it replays a plan file (one "(operator)"
per line, ";" starts a comment) and checks that it reaches the goal.

Examples:
  bidir validate gripper.yaml
  bidir validate gripper.yaml --plan gripper.plan
  bidir validate gripper.yaml --infer-mutex 100000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			task, doc, err := taskfile.Load(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "task %s: %s, %s, %s, %s, %s\n", doc.Name,
				plural(task.NumVariables(), "variable"),
				plural(task.NumOperators(), "operator"),
				plural(len(task.MutexGroups), "mutex group"),
				plural(task.NumAxioms(), "axiom"),
				plural(len(task.Goals()), "goal fact"))

			if inferMutex > 0 {
				groups, err := planner.InferMutexGroups(task, inferMutex)
				if err != nil {
					fmt.Fprintf(out, "%s mutex inference: %v\n", failMark, err)
				} else {
					fmt.Fprintf(out, "%s mutex inference: %s\n", okMark, plural(len(groups), "mutex pair"))
				}
			}

			var failures []string
			if _, err := planner.NewRegressionTask(task); err != nil {
				fmt.Fprintf(out, "%s regression: %v\n", failMark, err)
				failures = append(failures, "regression")
			} else {
				fmt.Fprintf(out, "%s regression: ok\n", okMark)
			}

			if planFile != "" {
				plan, err := readPlanFile(planFile, task)
				if err == nil {
					err = plan.Validate(task)
				}
				if err != nil {
					fmt.Fprintf(out, "%s plan: %v\n", failMark, err)
					failures = append(failures, "plan")
				} else {
					fmt.Fprintf(out, "%s plan: valid, %s, cost %d\n", okMark, plural(len(plan), "step"), plan.Cost(task))
				}
			}

			if len(failures) > 0 {
				return fmt.Errorf("validation failed: %s", strings.Join(failures, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&planFile, "plan", "p", "", "plan file to check")
	cmd.Flags().IntVar(&inferMutex, "infer-mutex", 0, "count mutex pairs by enumerating up to this many reachable states (0: off)")
	return cmd
}

func readPlanFile(path string, task planner.Task) (planner.Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan: %w", err)
	}
	defer f.Close()
	return parsePlan(f, task)
}

// parsePlan reads the format written by Plan.Format.
func parsePlan(r io.Reader, task planner.Task) (planner.Plan, error) {
	var plan planner.Plan
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, ";") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(text, "("), ")")
		op := planner.OperatorIndex(task, name)
		if op < 0 {
			return nil, fmt.Errorf("line %d: unknown operator %q", line, name)
		}
		plan = append(plan, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return plan, nil
}
