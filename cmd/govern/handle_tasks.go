// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/blinklabs-io/govern/api"
	"github.com/spf13/cobra"
)

var handleTasksFlags = struct {
	apiURL string
	from   int64
	count  uint64
}{}

// handleTasks asks a running server to handle tasks. A negative from starts
// at the first pending task
func handleTasks(
	ctx context.Context,
	client *http.Client,
	apiURL string,
	from int64,
	count uint64,
) (int, error) {
	req := api.HandleTasksRequest{Count: count}
	if from >= 0 {
		tmpFrom := uint64(from)
		req.From = &tmpFrom
	}
	body, err := json.Marshal(req)
	if err != nil {
		return 0, err
	}
	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		strings.TrimSuffix(apiURL, "/")+"/api/v0/tasks/handle",
		bytes.NewReader(body),
	)
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			return 0, errors.New(apiErr.Message)
		}
		return 0, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	var ret api.HandleTasksResponse
	if err := json.Unmarshal(respBody, &ret); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return ret.Handled, nil
}

func handleTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handle-tasks",
		Short: "Handle due proposal tasks on a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			handled, err := handleTasks(
				ctx,
				http.DefaultClient,
				handleTasksFlags.apiURL,
				handleTasksFlags.from,
				handleTasksFlags.count,
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "handled %d task(s)\n", handled)
			return nil
		},
	}
	cmd.Flags().
		StringVar(&handleTasksFlags.apiURL, "api", "http://127.0.0.1:8080", "base URL of the governance API")
	cmd.Flags().
		Int64Var(&handleTasksFlags.from, "from", -1, "first task index, negative for the first pending task")
	cmd.Flags().
		Uint64Var(&handleTasksFlags.count, "count", 0, "number of tasks to consider, 0 for the server default")
	return cmd
}
