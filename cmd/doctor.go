package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"

	"github.com/vanducng/goclaw-bridge/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("goclaw-bridge doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (not found, defaults + env will be used)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  tmux:")
	checkBinary("tmux")

	fmt.Println()
	fmt.Println("  Repos folder:")
	checkDir(cfg.ReposFolder)

	fmt.Println()
	fmt.Println("  Projects root (agent transcripts):")
	checkDir(cfg.ProjectsRoot)

	fmt.Println()
	fmt.Println("  Bridge config dir:")
	checkDir(cfg.ConfigDir)

	fmt.Println()
	fmt.Println("  Telegram:")
	checkTelegramToken(cfg.Telegram.Token)

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkBinary(name string) {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Printf("    %-12s NOT FOUND\n", name+":")
	} else {
		fmt.Printf("    %-12s %s\n", name+":", path)
	}
}

func checkDir(dir string) {
	if dir == "" {
		fmt.Println("    (not configured)")
		return
	}
	info, err := os.Stat(dir)
	switch {
	case err != nil:
		fmt.Printf("    %-40s NOT FOUND\n", dir)
	case !info.IsDir():
		fmt.Printf("    %-40s NOT A DIRECTORY\n", dir)
	default:
		fmt.Printf("    %-40s OK\n", dir)
	}
}

func checkTelegramToken(token string) {
	if token == "" {
		fmt.Println("    token: (not configured)")
		return
	}
	bot, err := telego.NewBot(token)
	if err != nil {
		fmt.Printf("    token: INVALID (%s)\n", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	me, err := bot.GetMe(ctx)
	if err != nil {
		fmt.Printf("    token: GETME FAILED (%s)\n", err)
		return
	}
	fmt.Printf("    token: OK (@%s)\n", me.Username)
}
