package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kokorotts/kokoro/internal/queue"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the conversion queue",
	Long:  paragraph(fmt.Sprintf("\nInspect and edit the %s of documents waiting to be converted.", keyword("queue"))),
}

var queueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List queued documents",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		_, _, q, err := loadState()
		if err != nil {
			return err
		}

		jobs := q.Jobs()
		if len(jobs) == 0 {
			fmt.Println("The queue is empty. Add documents with: kokoro queue add <path>")
			return nil
		}

		for i, job := range jobs {
			line := fmt.Sprintf("%2d. %-10s %s", i+1, job.Status, job.Name())
			switch job.Status {
			case queue.StatusDone:
				line += subtle(fmt.Sprintf("  → %s", job.Output))
			case queue.StatusFailed:
				line += subtle(fmt.Sprintf("  (%s)", job.Error))
			default:
				line += subtle(fmt.Sprintf("  added %s", humanize.Time(job.AddedAt)))
			}
			fmt.Println(line)
		}
		return nil
	},
}

var queueAddCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Add documents to the queue",
	Long:  paragraph("\nQueue files for conversion. Directories are scanned recursively for documents, and \"-\" reads text from stdin."),
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, cfg, q, err := loadState()
		if err != nil {
			return err
		}

		for _, job := range addSources(q, args, os.Stdin) {
			fmt.Println("Queued:", job.Name())
		}
		return saveState(store, cfg, q)
	},
}

var queueRemoveCmd = &cobra.Command{
	Use:     "rm <position>",
	Aliases: []string{"remove"},
	Short:   "Remove a document from the queue",
	Args:    cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, cfg, q, err := loadState()
		if err != nil {
			return err
		}

		job, err := jobAtPosition(q, args[0])
		if err != nil {
			return err
		}
		if err := q.Remove(job.ID); err != nil {
			return err
		}
		fmt.Println("Removed:", job.Name())
		return saveState(store, cfg, q)
	},
}

var queueMoveCmd = &cobra.Command{
	Use:     "mv <position> <delta>",
	Aliases: []string{"move"},
	Short:   "Reorder a queued document",
	Long:    paragraph("\nMove the document at <position> by <delta> places. Negative deltas move toward the front of the queue."),
	Args:    cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		store, cfg, q, err := loadState()
		if err != nil {
			return err
		}

		job, err := jobAtPosition(q, args[0])
		if err != nil {
			return err
		}
		delta, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid delta %q", args[1])
		}
		if err := q.Move(job.ID, delta); err != nil {
			return err
		}
		return saveState(store, cfg, q)
	},
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove finished and failed documents",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		store, cfg, q, err := loadState()
		if err != nil {
			return err
		}

		removed, err := q.ClearFinished()
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d finished job(s).\n", removed)
		return saveState(store, cfg, q)
	},
}

func jobAtPosition(q *queue.Manager, arg string) (queue.Job, error) {
	pos, err := strconv.Atoi(arg)
	if err != nil {
		return queue.Job{}, fmt.Errorf("invalid position %q", arg)
	}
	jobs := q.Jobs()
	if pos < 1 || pos > len(jobs) {
		return queue.Job{}, fmt.Errorf("position %d out of range (queue has %d jobs)", pos, len(jobs))
	}
	return jobs[pos-1], nil
}

func init() {
	queueCmd.AddCommand(queueListCmd, queueAddCmd, queueRemoveCmd, queueMoveCmd, queueClearCmd)
}
