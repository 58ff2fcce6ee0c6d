package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Trigger a reconciliation sweep and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, _ := cmd.Flags().GetInt("hours")
			path := fmt.Sprintf("/v1/reconcile/sweep?hours=%d", hours)
			return call(cmd, http.MethodPost, path, nil)
		},
	}
	cmd.Flags().IntP("hours", "H", 48, "Lookback window in hours")
	return cmd
}

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a single deposit against its gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			gateway, _ := cmd.Flags().GetString("gateway")
			reference, _ := cmd.Flags().GetString("reference")

			if id == "" && reference == "" {
				return fmt.Errorf("either --id or --gateway/--reference is required")
			}

			body := map[string]string{
				"transaction_id": id,
				"gateway":        gateway,
				"reference":      reference,
			}
			return call(cmd, http.MethodPost, "/v1/reconcile/verify", body)
		},
	}
	cmd.Flags().String("id", "", "Internal transaction id")
	cmd.Flags().String("gateway", "", "Gateway name (with --reference)")
	cmd.Flags().String("reference", "", "Gateway reference")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show deposit counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, http.MethodGet, "/v1/stats", nil)
		},
	}
}

// call performs one authenticated request and pretty-prints the JSON
// answer.
func call(cmd *cobra.Command, method, path string, body any) error {
	addr, _ := cmd.Flags().GetString("addr")
	secret, _ := cmd.Flags().GetString("secret")
	if secret == "" {
		return fmt.Errorf("no shared secret: set --secret or SWEEP_SECRET")
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, addr+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+secret)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Println(string(data))
	} else {
		fmt.Println(pretty.String())
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}
