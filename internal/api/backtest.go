// internal/api/backtest.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/quantsim/internal/api/job"
	"github.com/newthinker/quantsim/internal/api/response"
	"github.com/newthinker/quantsim/internal/config"
	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/engine"
	"github.com/newthinker/quantsim/internal/store"
)

const archiveTimeout = 2 * time.Minute

// BacktestRequest is the request body for starting a backtest. Zero-valued
// override fields keep the server's configured defaults.
type BacktestRequest struct {
	BarsPath       string  `json:"bars_path"`
	SignalFeature  string  `json:"signal_feature,omitempty"`
	LongPct        float64 `json:"long_pct,omitempty"`
	ShortPct       float64 `json:"short_pct,omitempty"`
	GrossExposure  float64 `json:"gross_exposure,omitempty"`
	RebalanceFreq  int     `json:"rebalance_freq,omitempty"`
	LagDays        int     `json:"lag_days,omitempty"`
	InitialCapital float64 `json:"initial_capital,omitempty"`
	Seed           int64   `json:"seed,omitempty"`
}

// handleCreateBacktest starts a new backtest job.
func (s *Server) handleCreateBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	if req.BarsPath == "" && s.cfg.Data.BarsPath == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigMissing, fmt.Errorf("bars_path is required")))
		return
	}

	cfg := s.runConfig(req)
	if err := cfg.Validate(); err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	j := s.jobs.Create("backtest")
	jobID := j.ID
	status := j.Status

	go s.runBacktest(jobID, cfg)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": status,
	})
}

// runConfig clones the server configuration and applies request overrides.
func (s *Server) runConfig(req BacktestRequest) *config.Config {
	cfg := *s.cfg
	if req.BarsPath != "" {
		cfg.Data.BarsPath = req.BarsPath
	}
	if req.SignalFeature != "" {
		cfg.Strategy.SignalFeature = req.SignalFeature
	}
	if req.LongPct > 0 {
		cfg.Strategy.LongPct = req.LongPct
	}
	if req.ShortPct > 0 {
		cfg.Strategy.ShortPct = req.ShortPct
	}
	if req.GrossExposure > 0 {
		cfg.Strategy.GrossExposure = req.GrossExposure
	}
	if req.RebalanceFreq > 0 {
		cfg.Strategy.RebalanceFreq = req.RebalanceFreq
	}
	if req.LagDays > 0 {
		cfg.Strategy.LagDays = req.LagDays
	}
	if req.InitialCapital > 0 {
		cfg.Engine.InitialCapital = req.InitialCapital
	}
	if req.Seed != 0 {
		cfg.Engine.Seed = req.Seed
	}
	return &cfg
}

// runBacktest executes the backtest and updates job status.
func (s *Server) runBacktest(jobID string, cfg *config.Config) {
	s.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})
	s.registry.JobStarted()
	defer s.registry.JobFinished()

	start := time.Now()
	result, err := s.execute(cfg)
	duration := time.Since(start).Seconds()

	if err != nil {
		s.registry.RecordRun("failed", duration, 0)
		s.jobs.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = core.WrapError(core.ErrRunFailed, err)
		})
		s.logger.Error("backtest job failed",
			zap.String("job_id", jobID), zap.Error(err))
		return
	}

	s.registry.RecordRun("ok", duration, len(result.Trades))
	for _, warn := range result.Warnings {
		s.registry.RecordWarning(string(warn.Kind))
	}

	if s.archiver != nil {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := s.archiver.Save(ctx, result); err != nil {
			s.logger.Error("archiving run failed",
				zap.String("run_id", result.RunID), zap.Error(err))
		}
	}

	s.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Result = result
	})
}

func (s *Server) execute(cfg *config.Config) (*engine.Result, error) {
	bars, err := store.ReadBars(cfg.Data.BarsPath)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(cfg, s.logger)
	if err != nil {
		return nil, err
	}
	return eng.Run(bars)
}

// handleBacktestStatus returns the status of a backtest job.
func (s *Server) handleBacktestStatus(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.Get(r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	}
	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
	}

	response.JSON(w, http.StatusOK, resp)
}

// handleListBacktests returns all known jobs.
func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobs.List()
	summaries := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		summaries = append(summaries, map[string]any{
			"job_id":     j.ID,
			"status":     j.Status,
			"created_at": j.CreatedAt,
			"updated_at": j.UpdatedAt,
		})
	}
	response.JSON(w, http.StatusOK, summaries)
}
