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

package aws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type blobMetrics struct {
	opsTotal   prometheus.Counter
	bytesTotal prometheus.Counter
}

func (m *blobMetrics) observe(size int) {
	if m == nil {
		return
	}
	m.opsTotal.Inc()
	m.bytesTotal.Add(float64(size))
}

// RegisterMetrics exports blob operation counters to the given registry
func (d *BlobStoreS3) RegisterMetrics(registry prometheus.Registerer) {
	d.promRegistry = registry
	d.registerBlobMetrics()
}

func (d *BlobStoreS3) registerBlobMetrics() {
	if d.metrics != nil {
		return
	}
	promautoFactory := promauto.With(d.promRegistry)
	d.metrics = &blobMetrics{
		opsTotal: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "database_blob_ops_total",
				Help: "number of S3 blob operations",
			},
		),
		bytesTotal: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "database_blob_bytes_total",
				Help: "bytes read and written by S3 blob operations",
			},
		),
	}
}
