// Command goclaw-bridge remote-controls a tmux-hosted coding agent from
// a Telegram chat: it tails the agent's session transcript, injects
// chat messages as pane keystrokes, and surfaces permission prompts
// and waiting-for-input state back to chat.
package main

import "github.com/vanducng/goclaw-bridge/cmd"

func main() {
	cmd.Execute()
}
