// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Command policyctl is an operator CLI for a running policy-admin
// instance, mirroring the teacher's slurm-cli: one cobra subcommand per
// remote operation, a shared --output flag, and a single client built
// once from persistent flags/environment variables.
package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	addr      string
	token     string
	outputFmt string

	rootCmd = &cobra.Command{
		Use:   "policyctl",
		Short: "CLI for the policy-admin accounting-policy service",
		Long:  `A command-line interface for driving jobs through a running policy-admin instance's lifecycle endpoints.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "http://localhost:7002", "policy-admin base URL (env: POLICYCTL_ADDR)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (env: POLICYCTL_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "output format: table, json")

	rootCmd.AddCommand(validateCmd, preSelectCmd, postSelectCmd, submitCmd, unsubmitCmd,
		beginCmd, finiCmd, alterCmd, timeoutCheckCmd, maxNodesCmd,
		qosCmd, associationsCmd, partitionsCmd, reportCmd)
}

func client() *apiClient {
	a := addr
	if a == "http://localhost:7002" {
		if e := os.Getenv("POLICYCTL_ADDR"); e != "" {
			a = e
		}
	}
	t := token
	if t == "" {
		t = os.Getenv("POLICYCTL_TOKEN")
	}
	return newAPIClient(strings.TrimRight(a, "/"), t)
}

func printResult(v interface{}) {
	if outputFmt == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)
		return
	}
	fmt.Printf("%+v\n", v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func jobFlags(cmd *cobra.Command) *jobRequest {
	j := &jobRequest{}
	j.JobID, _ = cmd.Flags().GetString("job-id")
	j.UserID, _ = cmd.Flags().GetString("user-id")
	j.Account, _ = cmd.Flags().GetString("account")
	j.AssocID, _ = cmd.Flags().GetString("assoc-id")
	j.QoS, _ = cmd.Flags().GetString("qos")
	j.Partition, _ = cmd.Flags().GetString("partition")
	j.CPUs, _ = cmd.Flags().GetInt64("cpus")
	j.Nodes, _ = cmd.Flags().GetInt64("nodes")
	j.MinMemory, _ = cmd.Flags().GetInt64("min-memory")
	j.TimeLimit, _ = cmd.Flags().GetInt64("time-limit")
	return j
}

func addJobFlags(cmd *cobra.Command) {
	cmd.Flags().String("job-id", "", "job id (required)")
	cmd.Flags().String("user-id", "", "submitting user id (required)")
	cmd.Flags().String("account", "", "account name")
	cmd.Flags().String("assoc-id", "", "association id, if already known")
	cmd.Flags().String("qos", "", "requested QoS name")
	cmd.Flags().String("partition", "", "requested partition name")
	cmd.Flags().Int64("cpus", 0, "requested CPU count")
	cmd.Flags().Int64("nodes", 0, "requested node count")
	cmd.Flags().Int64("min-memory", 0, "minimum memory (MB)")
	cmd.Flags().Int64("time-limit", 0, "requested time limit (minutes)")
	_ = cmd.MarkFlagRequired("job-id")
	_ = cmd.MarkFlagRequired("user-id")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Submit a job for admission validation",
	Run: func(cmd *cobra.Command, args []string) {
		var resp decisionResponse
		if err := client().post("/v1/jobs/validate", jobFlags(cmd), &resp); err != nil {
			fail(err)
		}
		printResult(resp)
	},
}

var preSelectCmd = &cobra.Command{
	Use:   "pre-select JOB_ID",
	Short: "Run the pre-select runnability check for a tracked job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var resp decisionResponse
		if err := client().post("/v1/jobs/"+args[0]+"/runnable/pre-select", nil, &resp); err != nil {
			fail(err)
		}
		printResult(resp)
	},
}

var postSelectCmd = &cobra.Command{
	Use:   "post-select JOB_ID",
	Short: "Run the post-select runnability check with a node selection",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		nodeCnt, _ := cmd.Flags().GetInt64("node-cnt")
		cpuCnt, _ := cmd.Flags().GetInt64("cpu-cnt")
		perNodeMem, _ := cmd.Flags().GetInt64("per-node-memory")
		var resp decisionResponse
		body := postSelectRequest{NodeCnt: nodeCnt, CPUCnt: cpuCnt, PerNodeMem: perNodeMem}
		if err := client().post("/v1/jobs/"+args[0]+"/runnable/post-select", body, &resp); err != nil {
			fail(err)
		}
		printResult(resp)
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit JOB_ID",
	Short: "Record an additional submission (ADD_SUBMIT) against a tracked job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var resp jobView
		if err := client().post("/v1/jobs/"+args[0]+"/submit", nil, &resp); err != nil {
			fail(err)
		}
		printResult(resp)
	},
}

var unsubmitCmd = &cobra.Command{
	Use:   "unsubmit JOB_ID",
	Short: "Retract a submission (REM_SUBMIT) and stop tracking the job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := client().delete("/v1/jobs/" + args[0] + "/submit"); err != nil {
			fail(err)
		}
		fmt.Println("ok")
	},
}

var beginCmd = &cobra.Command{
	Use:   "begin JOB_ID",
	Short: "Mark a job as started (JOB_BEGIN)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		totalCPUs, _ := cmd.Flags().GetInt64("total-cpus")
		nodeCnt, _ := cmd.Flags().GetInt64("node-cnt")
		var resp jobView
		body := beginRequest{TotalCPUs: totalCPUs, NodeCnt: nodeCnt}
		if err := client().post("/v1/jobs/"+args[0]+"/begin", body, &resp); err != nil {
			fail(err)
		}
		printResult(resp)
	},
}

var finiCmd = &cobra.Command{
	Use:   "fini JOB_ID",
	Short: "Mark a job as finished (JOB_FINI)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var resp jobView
		if err := client().post("/v1/jobs/"+args[0]+"/fini", nil, &resp); err != nil {
			fail(err)
		}
		printResult(resp)
	},
}

var alterCmd = &cobra.Command{
	Use:   "alter JOB_ID",
	Short: "Request a new time limit for a running or pending job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		newLimit, _ := cmd.Flags().GetInt64("new-time-limit")
		var resp jobView
		body := alterRequest{NewTimeLimit: newLimit}
		if err := client().post("/v1/jobs/"+args[0]+"/alter", body, &resp); err != nil {
			fail(err)
		}
		printResult(resp)
	},
}

var timeoutCheckCmd = &cobra.Command{
	Use:   "timeout-check JOB_ID",
	Short: "Run one timeout evaluation pass against a running job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var resp decisionResponse
		if err := client().post("/v1/jobs/"+args[0]+"/timeout-check", nil, &resp); err != nil {
			fail(err)
		}
		printResult(resp)
	},
}

var maxNodesCmd = &cobra.Command{
	Use:   "max-nodes JOB_ID",
	Short: "Query the effective max-node limit for a tracked job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var resp maxNodesResponse
		if err := client().get("/v1/jobs/"+args[0]+"/max-nodes", nil, &resp); err != nil {
			fail(err)
		}
		printResult(resp)
	},
}

var qosCmd = &cobra.Command{
	Use:   "qos",
	Short: "List QoS definitions and their usage",
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		q := url.Values{}
		if name != "" {
			q.Set("qos", name)
		}
		var resp []qosView
		if err := client().get("/v1/qos", q, &resp); err != nil {
			fail(err)
		}
		printResult(resp)
	},
}

var associationsCmd = &cobra.Command{
	Use:   "associations",
	Short: "List associations and their usage",
	Run: func(cmd *cobra.Command, args []string) {
		account, _ := cmd.Flags().GetString("account")
		user, _ := cmd.Flags().GetString("user")
		q := url.Values{}
		if account != "" {
			q.Set("account", account)
		}
		if user != "" {
			q.Set("user", user)
		}
		var resp []associationView
		if err := client().get("/v1/associations", q, &resp); err != nil {
			fail(err)
		}
		printResult(resp)
	},
}

var partitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "List partitions",
	Run: func(cmd *cobra.Command, args []string) {
		var resp []partitionView
		if err := client().get("/v1/partitions", nil, &resp); err != nil {
			fail(err)
		}
		printResult(resp)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a usage report for a QoS or association",
	Run: func(cmd *cobra.Command, args []string) {
		kind, _ := cmd.Flags().GetString("kind")
		name, _ := cmd.Flags().GetString("name")
		q := url.Values{"kind": {kind}, "name": {name}}

		u := strings.TrimRight(addrOrEnv(), "/") + "/v1/report?" + q.Encode()
		resp, err := fetchText(u)
		if err != nil {
			fail(err)
		}
		fmt.Print(resp)
	},
}

func addrOrEnv() string {
	if e := os.Getenv("POLICYCTL_ADDR"); e != "" {
		return e
	}
	return addr
}

func init() {
	postSelectCmd.Flags().Int64("node-cnt", 0, "selected node count")
	postSelectCmd.Flags().Int64("cpu-cnt", 0, "selected CPU count")
	postSelectCmd.Flags().Int64("per-node-memory", 0, "selected per-node memory (MB)")

	beginCmd.Flags().Int64("total-cpus", 0, "total CPUs allocated at start")
	beginCmd.Flags().Int64("node-cnt", 0, "total nodes allocated at start")

	alterCmd.Flags().Int64("new-time-limit", 0, "requested new time limit (minutes)")
	_ = alterCmd.MarkFlagRequired("new-time-limit")

	qosCmd.Flags().String("name", "", "filter to a single QoS name")
	associationsCmd.Flags().String("account", "", "filter by account")
	associationsCmd.Flags().String("user", "", "filter by user id")

	reportCmd.Flags().String("kind", "qos", "report kind: qos or assoc")
	reportCmd.Flags().String("name", "", "QoS or association name")
	_ = reportCmd.MarkFlagRequired("name")

	addJobFlags(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
