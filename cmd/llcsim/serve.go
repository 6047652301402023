package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/llcsim/internal/ledger"
)

func newServeCmd() *cobra.Command {
	var (
		ledgerPath string
		addr       string
		open       bool
		recent     int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host a small dashboard over a run ledger's history",
		RunE: func(cmd *cobra.Command, args []string) error {
			ldg, err := ledger.Open(ledgerPath)
			if err != nil {
				return err
			}
			defer ldg.Close()

			router := mux.NewRouter()
			router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			router.HandleFunc("/runs.json", func(w http.ResponseWriter, r *http.Request) {
				runs, err := ldg.Recent(recent)
				if err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(runs)
			})
			router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				runs, err := ldg.Recent(recent)
				if err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				renderDashboard(w, runs)
			})
			router.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
				run, err := lookupSnapshotRun(ldg, r.URL.Query().Get("run"))
				if err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				if run.RunID == "" {
					http.NotFound(w, r)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(run.SnapshotJSON))
			})

			log.Infow("serving dashboard", "addr", addr, "ledger", ledgerPath)
			if open {
				_ = browser.OpenURL("http://" + addr + "/")
			}
			return http.ListenAndServe(addr, router)
		},
	}

	cmd.Flags().StringVar(&ledgerPath, "ledger", "llcsim.db", "SQLite ledger file to read run history from")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "address to serve the dashboard on")
	cmd.Flags().BoolVar(&open, "open", false, "open the dashboard in a browser once serving starts")
	cmd.Flags().IntVar(&recent, "recent", 50, "number of recent runs to show")

	return cmd
}

// lookupSnapshotRun resolves the run a /snapshot request asked for: a
// specific run_id if given, otherwise the most recently recorded run.
func lookupSnapshotRun(ldg *ledger.Ledger, runID string) (ledger.Run, error) {
	if runID != "" {
		return ldg.ByRunID(runID)
	}
	runs, err := ldg.Recent(1)
	if err != nil {
		return ledger.Run{}, err
	}
	if len(runs) == 0 {
		return ledger.Run{}, nil
	}
	return runs[0], nil
}

func renderDashboard(w http.ResponseWriter, runs []ledger.Run) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<html><head><title>llcsim</title></head><body>"))
	_, _ = w.Write([]byte("<h1>llcsim runs</h1><table border=\"1\" cellpadding=\"4\">"))
	_, _ = w.Write([]byte("<tr><th>run</th><th>started</th><th>policy</th><th>cfg</th><th>ways0</th><th>ways1</th><th>dead0</th><th>dead1</th><th>hit0</th><th>hit1</th></tr>"))
	for _, r := range runs {
		row := "<tr><td>" + r.RunID + "</td><td>" + r.StartedAt.Format("2006-01-02 15:04:05") + "</td><td>" + r.Policy + "</td><td>" + r.Cfgname + "</td>" +
			"<td>" + strconv.Itoa(r.WaysQuota[0]) + "</td><td>" + strconv.Itoa(r.WaysQuota[1]) + "</td>" +
			"<td>" + strconv.FormatUint(r.TotalDead[0], 10) + "</td><td>" + strconv.FormatUint(r.TotalDead[1], 10) + "</td>" +
			"<td>" + strconv.FormatUint(r.TotalHit[0], 10) + "</td><td>" + strconv.FormatUint(r.TotalHit[1], 10) + "</td></tr>"
		_, _ = w.Write([]byte(row))
	}
	_, _ = w.Write([]byte("</table></body></html>"))
}
