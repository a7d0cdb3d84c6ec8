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

package govern

import (
	"errors"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/raulk/clock"
)

const (
	DefaultShutdownTimeout = 30 * time.Second
	DefaultTaskBatchSize   = 100
)

type Config struct {
	promRegistry      prometheus.Registerer
	logger            *slog.Logger
	clock             clock.Clock
	proposalFee       *big.Int
	dataDir           string
	blobPlugin        string
	metadataPlugin    string
	apiListenAddress  string
	tlsCertFilePath   string
	tlsKeyFilePath    string
	templatesFile     string
	stakeGenesisFile  string
	eventJournalPath  string
	taskInterval      time.Duration
	shutdownTimeout   time.Duration
	taskBatchSize     uint64
	contractCacheSize int
	engineAddress     common.Address
	ownerAddress      common.Address
	devMode           bool
	tracing           bool
	tracingStdout     bool
}

func (c *Config) validate() error {
	if c.proposalFee == nil {
		return errors.New("no proposal fee configured")
	}
	if c.proposalFee.Sign() < 0 {
		return errors.New("proposal fee must not be negative")
	}
	if c.engineAddress == (common.Address{}) {
		return errors.New("engine address must not be the zero address")
	}
	if c.ownerAddress == c.engineAddress {
		return errors.New("owner and engine address must differ")
	}
	if c.taskInterval < 0 {
		return errors.New("task interval must not be negative")
	}
	if (c.tlsCertFilePath == "") != (c.tlsKeyFilePath == "") {
		return errors.New("TLS needs both a certificate and a key")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new govern config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		shutdownTimeout: DefaultShutdownTimeout,
		taskBatchSize:   DefaultTaskBatchSize,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithClock overrides the clock used for proposal timing. Mostly useful for tests
func WithClock(clk clock.Clock) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clk
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithProposalFee specifies the exact fee that must be paid to create a proposal
func WithProposalFee(fee *big.Int) ConfigOptionFunc {
	return func(c *Config) {
		if fee == nil {
			c.proposalFee = nil
			return
		}
		c.proposalFee = new(big.Int).Set(fee)
	}
}

// WithEngineAddress specifies the identity proposals are executed as. It is
// also the governance authority for network parameters
func WithEngineAddress(addr common.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.engineAddress = addr
	}
}

// WithOwnerAddress specifies an additional identity allowed to change
// network parameters. The default is none
func WithOwnerAddress(addr common.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.ownerAddress = addr
	}
}

// WithApiListenAddress specifies the listen address for the HTTP API. An
// empty string disables the server. The default is empty (disabled)
func WithApiListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithApiTlsCertFilePath specifies the path to the TLS certificate for the API listener. This defaults to empty
func WithApiTlsCertFilePath(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.tlsCertFilePath = path
	}
}

// WithApiTlsKeyFilePath specifies the path to the TLS key for the API listener. This defaults to empty
func WithApiTlsKeyFilePath(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.tlsKeyFilePath = path
	}
}

// WithDevMode enables the development API endpoints for deploying contracts
// and setting stake
func WithDevMode(devMode bool) ConfigOptionFunc {
	return func(c *Config) {
		c.devMode = devMode
	}
}

// WithTemplatesFile specifies a YAML file of templates to register at
// startup. Templates that already exist are left alone
func WithTemplatesFile(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.templatesFile = path
	}
}

// WithStakeGenesisFile specifies a YAML file used to seed the in-memory stake ledger
func WithStakeGenesisFile(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.stakeGenesisFile = path
	}
}

// WithEventJournal specifies a file that governance events are appended to
// as JSON lines. The default is empty (disabled)
func WithEventJournal(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.eventJournalPath = path
	}
}

// WithTaskRunner enables periodic task handling with the given interval and
// batch size. An interval of 0 disables it, which is the default
func WithTaskRunner(interval time.Duration, batchSize uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.taskInterval = interval
		if batchSize > 0 {
			c.taskBatchSize = batchSize
		}
	}
}

// WithContractCacheSize specifies how many resolved proposal contracts are cached
func WithContractCacheSize(size int) ConfigOptionFunc {
	return func(c *Config) {
		c.contractCacheSize = size
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
