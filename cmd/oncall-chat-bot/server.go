package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"k8s.io/klog"
	"sigs.k8s.io/prow/pkg/interrupts"
	"sigs.k8s.io/prow/pkg/metrics"
	"sigs.k8s.io/prow/pkg/pjutil"
	"sigs.k8s.io/prow/pkg/simplifypath"

	"github.com/openshift/oncall-chat-bot/pkg/command"
	"github.com/openshift/oncall-chat-bot/pkg/lookup"
)

// maxCommandBytes bounds the body of a command request.
const maxCommandBytes = 16 << 10

type server struct {
	service  command.Lookup
	commands []*command.Command
	apiKey   string
}

type commandRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error    string   `json:"error"`
	Commands []string `json:"commands,omitempty"`
}

func l(fragment string, children ...simplifypath.Node) simplifypath.Node {
	return simplifypath.L(fragment, children...)
}

// Start serves the lookup API on port until the process is interrupted. release
// runs once the server has stopped, so lookups still being served keep their
// upstream queue for every stage.
func Start(bot *server, port int, gracePeriod time.Duration, health *pjutil.Health, gatherer prometheus.Gatherer, httpMetrics *metrics.Metrics, release func()) {
	httpServer := &http.Server{Addr: ":" + strconv.Itoa(port), Handler: bot.mux(gatherer, httpMetrics), ReadHeaderTimeout: 10 * time.Second}
	health.ServeReady(func() bool {
		resp, err := http.DefaultClient.Get("http://127.0.0.1:" + strconv.Itoa(port) + "/readyz")
		if resp != nil {
			resp.Body.Close()
		}
		return err == nil && resp.StatusCode == http.StatusOK
	})

	interrupts.ListenAndServe(httpServer, gracePeriod)
	klog.Infof("oncall-chat-bot listening on port %d", port)
	interrupts.WaitForGracefulShutdown()
	release()
	klog.Info("oncall-chat-bot drained")
}

func (s *server) mux(gatherer prometheus.Gatherer, httpMetrics *metrics.Metrics) *http.ServeMux {
	simplifier := simplifypath.NewSimplifier(l("", // shadow element mimicking the root
		l(""),       // for black-box health checks
		l("readyz"), // for readyness probe check
		l("command"),
		l("teams"),
		l("escalations"),
		l("oncall"),
		l("users"),
	))
	handler := metrics.TraceHandler(simplifier, httpMetrics.HTTPRequestDuration, httpMetrics.HTTPResponseSize)
	mux := http.NewServeMux()
	// handle the root to allow for a simple uptime probe
	mux.Handle("/", handler(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) { writer.WriteHeader(http.StatusOK) })))
	mux.Handle("/readyz", handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))) // report ready once the server is up and responding
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/command", handler(s.handleCommand()))
	mux.Handle("/teams", handler(s.handleSearch("teams", s.service.Teams)))
	mux.Handle("/escalations", handler(s.handleSearch("escalations", s.service.Escalations)))
	mux.Handle("/oncall", handler(s.handleOnCall()))
	mux.Handle("/users", handler(s.handleSearch("users", s.service.Users)))
	return mux
}

func (s *server) handleCommand() http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		logger := logrus.WithField("api", "command")
		if request.Method != http.MethodPost {
			writeError(writer, logger, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", request.Method))
			return
		}
		var body commandRequest
		if err := json.NewDecoder(http.MaxBytesReader(writer, request.Body, maxCommandBytes)).Decode(&body); err != nil {
			writeError(writer, logger, http.StatusBadRequest, fmt.Errorf("failed to decode command: %w", err))
			return
		}
		logger = logger.WithField("text", body.Text)
		result, err := command.Dispatch(request.Context(), s.commands, s.service, s.apiKey, body.Text)
		var usage *command.UsageError
		switch {
		case errors.Is(err, command.ErrUnrecognized):
			writeJSON(writer, logger, http.StatusBadRequest, errorResponse{Error: err.Error(), Commands: s.usages()})
			return
		case errors.As(err, &usage):
			writeError(writer, logger, http.StatusBadRequest, err)
			return
		case err != nil:
			writeError(writer, logger, http.StatusInternalServerError, err)
			return
		}
		writeJSON(writer, logger, http.StatusOK, result)
	}
}

func (s *server) handleSearch(api string, lookupFn func(ctx context.Context, apiKey string, tokens []string) lookup.Result) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		logger := logrus.WithField("api", api)
		if request.Method != http.MethodGet {
			writeError(writer, logger, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", request.Method))
			return
		}
		query := request.URL.Query().Get("query")
		logger.WithField("query", query).Debug("Handling lookup.")
		writeJSON(writer, logger, http.StatusOK, lookupFn(request.Context(), s.apiKey, strings.Fields(query)))
	}
}

func (s *server) handleOnCall() http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		logger := logrus.WithField("api", "oncall")
		if request.Method != http.MethodGet {
			writeError(writer, logger, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", request.Method))
			return
		}
		params := request.URL.Query()
		scopeName := params.Get("scope")
		if scopeName == "" {
			scopeName = string(lookup.ScopeAll)
		}
		scope, err := lookup.ParseScope(scopeName)
		if err != nil {
			writeError(writer, logger, http.StatusBadRequest, err)
			return
		}
		query := params.Get("query")
		logger.WithFields(logrus.Fields{"query": query, "scope": scope}).Debug("Handling lookup.")
		writeJSON(writer, logger, http.StatusOK, s.service.OnCall(request.Context(), s.apiKey, scope, strings.Fields(query)))
	}
}

func (s *server) usages() []string {
	usages := make([]string, 0, len(s.commands))
	for _, c := range s.commands {
		usages = append(usages, c.Usage())
	}
	return usages
}

func writeError(writer http.ResponseWriter, logger *logrus.Entry, status int, err error) {
	logger.WithError(err).Debug("Rejecting request.")
	writeJSON(writer, logger, status, errorResponse{Error: err.Error()})
}

func writeJSON(writer http.ResponseWriter, logger *logrus.Entry, status int, body interface{}) {
	response, err := json.Marshal(body)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal response.")
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.Header().Set("Content-Length", strconv.Itoa(len(response)))
	writer.WriteHeader(status)
	if _, err := writer.Write(response); err != nil {
		logger.WithError(err).Error("Failed to send response.")
	}
}
