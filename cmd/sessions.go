package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanducng/goclaw-bridge/internal/config"
	"github.com/vanducng/goclaw-bridge/internal/sessions"
)

func sessionsCmd() *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "sessions",
		Short: "List known agent sessions (operator debugging aid)",
		Run: func(cmd *cobra.Command, args []string) {
			runSessions(limit)
		},
	}
	c.Flags().IntVar(&limit, "limit", 20, "maximum sessions to list (0 for all)")
	return c
}

func runSessions(limit int) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Printf("config load error: %s\n", err)
		return
	}

	idx := sessions.New(cfg.ProjectsRoot)
	list := idx.ListSessions(limit)
	if len(list) == 0 {
		fmt.Println("no sessions found")
		return
	}

	fmt.Printf("%-36s %-20s %-40s %s\n", "SESSION ID", "PROJECT", "CWD", "LAST MODIFIED")
	for _, s := range list {
		fmt.Printf("%-36s %-20s %-40s %s\n", s.SessionID, s.ProjectName, s.Cwd, s.Mtime.Format(time.RFC3339))
	}
}
