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
package governance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type engineMetrics struct {
	proposalsCreated  prometheus.Counter
	proposalsRejected prometheus.Counter
	votesCast         prometheus.Counter
	votesCancelled    prometheus.Counter
	proposalsFinal    *prometheus.CounterVec
	executions        *prometheus.CounterVec
	tasksHandled      prometheus.Counter
	taskRunErrors     prometheus.Counter
	activeProposals   prometheus.Gauge
	lastProposalID    prometheus.Gauge
	handleTasksTime   prometheus.Histogram
}

func (m *engineMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.proposalsCreated = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "governance_proposals_created_total",
		Help: "total number of proposals created",
	})
	m.proposalsRejected = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "governance_proposals_rejected_total",
		Help: "total number of rejected proposal submissions",
	})
	m.votesCast = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "governance_votes_cast_total",
		Help: "total number of votes cast, including revotes",
	})
	m.votesCancelled = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "governance_votes_cancelled_total",
		Help: "total number of cancelled votes",
	})
	m.proposalsFinal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governance_proposals_finalized_total",
			Help: "total number of finalized proposals by outcome",
		},
		[]string{"status"},
	)
	m.executions = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governance_executions_total",
			Help: "total number of proposal executions by mode and result",
		},
		[]string{"mode", "result"},
	)
	m.tasksHandled = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "governance_tasks_handled_total",
		Help: "total number of consumed finalization tasks",
	})
	m.taskRunErrors = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "governance_task_runner_errors_total",
		Help: "total number of failed task runner passes",
	})
	m.activeProposals = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "governance_active_proposals",
		Help: "number of proposals awaiting finalization",
	})
	m.lastProposalID = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "governance_last_proposal_id",
		Help: "ID of the most recently created proposal",
	})
	m.handleTasksTime = promautoFactory.NewHistogram(prometheus.HistogramOpts{
		Name:    "governance_handle_tasks_duration_seconds",
		Help:    "duration of HandleTasks calls",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
}
