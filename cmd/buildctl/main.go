// Package main implements the buildctl CLI for manual operations against the
// buildd HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the buildd HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "buildctl",
	Short: "CLI for buildd HTTP server operations",
	Long: `buildctl is a command-line interface for interacting with the buildd server.
It provides commands for starting builds, polling their progress, and chatting
with the intent router.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8844", "buildd server URL")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(healthCmd)
}

var (
	startDescription string
	startTechStack   []string
	startFeatures    []string
)

// startCmd starts a new build
var startCmd = &cobra.Command{
	Use:   "start <project-name>",
	Short: "Start a new project build",
	Long: `Start a new project build through the buildd pipeline.

Examples:
  # Start a build
  buildctl start portfolio-site --description "A personal portfolio website"

  # With tech stack hints
  buildctl start todo-api --description "REST API for todos" --tech go --tech postgres`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

// statusCmd shows one build's state
var statusCmd = &cobra.Command{
	Use:   "status <build-id>",
	Short: "Show the current state of a build",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

// listCmd lists all builds
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all builds",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

// chatCmd sends a chat message
var chatCmd = &cobra.Command{
	Use:   "chat <message...>",
	Short: "Send a chat message to the intent router",
	Long: `Send a free-text message. Build triggers start a build; research triggers
get a research acknowledgement; anything else gets a general reply.

Examples:
  buildctl chat build me a portfolio site
  buildctl chat what is RAG`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check buildd server health",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	startCmd.Flags().StringVarP(&startDescription, "description", "d", "", "project description (required)")
	startCmd.Flags().StringArrayVar(&startTechStack, "tech", nil, "tech stack tag (repeatable)")
	startCmd.Flags().StringArrayVar(&startFeatures, "feature", nil, "feature tag (repeatable)")
	_ = startCmd.MarkFlagRequired("description")
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func postJSON(path string, payload any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient().Post(serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp)
}

func getJSON(path string) (map[string]any, error) {
	resp, err := httpClient().Get(serverURL + path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp)
}

func decodeResponse(resp *http.Response) (map[string]any, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return parsed, nil
}

func printIndented(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(out))
}

func runStart(cmd *cobra.Command, args []string) error {
	payload := map[string]any{
		"project_name": args[0],
		"description":  startDescription,
	}
	if len(startTechStack) > 0 {
		payload["tech_stack"] = startTechStack
	}
	if len(startFeatures) > 0 {
		payload["features"] = startFeatures
	}

	b, err := postJSON("/api/v1/builds", payload)
	if err != nil {
		return err
	}

	fmt.Printf("Build started: %v\n", b["id"])
	printIndented(b)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	b, err := getJSON("/api/v1/builds/" + args[0])
	if err != nil {
		return err
	}
	printIndented(b)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	resp, err := getJSON("/api/v1/builds")
	if err != nil {
		return err
	}

	builds, _ := resp["builds"].([]any)
	if len(builds) == 0 {
		fmt.Println("No builds.")
		return nil
	}

	for _, raw := range builds {
		b, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		cfg, _ := b["config"].(map[string]any)
		fmt.Printf("%v  %-10v  %v\n", b["id"], b["status"], cfg["project_name"])
	}
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	reply, err := postJSON("/api/v1/chat", map[string]any{
		"message": strings.Join(args, " "),
	})
	if err != nil {
		return err
	}

	fmt.Println(reply["content"])
	if metadata, ok := reply["metadata"].(map[string]any); ok {
		if id, ok := metadata["build_id"]; ok && id != "" {
			fmt.Printf("\nBuild ID: %v\n", id)
		}
	}
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	resp, err := getJSON("/health")
	if err != nil {
		return err
	}
	fmt.Printf("Server status: %v\n", resp["status"])
	return nil
}
