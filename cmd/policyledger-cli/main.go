// Command policyledger-cli is a thin HTTP client for a running
// policyledgerd node: chain inspection, policy submission, and mining.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"policyledger/internal/policy"
)

var nodeURL string

var rootCmd = &cobra.Command{
	Use:   "policyledger-cli",
	Short: "Client for a policyledgerd node",
}

func doRequest(method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, nodeURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, out)
	}
	return out, nil
}

var chainShowCmd = &cobra.Command{
	Use:   "chain-show",
	Short: "Print the node's current chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := doRequest(http.MethodGet, "/", nil)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine a block from the node's pending policies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := doRequest(http.MethodGet, "/mine", nil)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var policyAddCmd = &cobra.Command{
	Use:   "policy-add [file]",
	Short: "Submit a policy document (JSON) to the node's mempool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var p policy.Policy
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("not valid JSON: %w", err)
		}
		if p.ID == "" {
			p.ID = policy.NewID()
		}
		out, err := doRequest(http.MethodPost, "/add-policy", p)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var consensusCmd = &cobra.Command{
	Use:   "consensus",
	Short: "Trigger longest-chain resolution against known peers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := doRequest(http.MethodGet, "/consensus", nil)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&nodeURL, "node", "http://localhost:8000", "base URL of the target node")
	rootCmd.AddCommand(chainShowCmd, mineCmd, policyAddCmd, consensusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
