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
	"testing"
	"time"

	"github.com/blinklabs-io/govern/database/plugin"
	"github.com/blinklabs-io/govern/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParsesLocation(t *testing.T) {
	testDefs := []struct {
		location string
		bucket   string
		prefix   string
		err      string
	}{
		{location: "s3://bucket", bucket: "bucket"},
		{location: "s3://bucket/", bucket: "bucket"},
		{location: "s3://bucket/gov/data/", bucket: "bucket", prefix: "gov/data/"},
		{location: "bucket", err: "expected location"},
		{location: "s3://", err: "bucket not set"},
		{location: "s3:///prefix", err: "bucket not set"},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.location, func(t *testing.T) {
			d, err := New(testDef.location, nil, nil)
			if testDef.err != "" {
				require.ErrorContains(t, err, testDef.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testDef.bucket, d.Bucket())
			assert.Equal(t, testDef.prefix, d.prefix)
			assert.Equal(t, defaultTimeout, d.timeout)
			assert.NotNil(t, d.logger)
		})
	}
}

func TestObjectKeyRoundTrip(t *testing.T) {
	d, err := NewWithOptions(WithBucket("b"), WithPrefix("/gov/"))
	require.NoError(t, err)
	key := types.ExecutionReceiptKey(7)
	name := d.objectKey(key)
	assert.Equal(t, "gov/65720000000000000007", name)
	ret, err := d.blobKey(name)
	require.NoError(t, err)
	assert.Equal(t, key, ret)
}

func TestTxnValidation(t *testing.T) {
	d, err := NewWithOptions(WithBucket("b"), WithTimeout(time.Second))
	require.NoError(t, err)
	other, err := NewWithOptions(WithBucket("b"))
	require.NoError(t, err)

	_, err = d.Get(nil, []byte("k"))
	require.ErrorIs(t, err, types.ErrNilTxn)
	_, err = d.Get(other.NewTransaction(false), []byte("k"))
	require.ErrorIs(t, err, types.ErrTxnWrongType)

	ro := d.NewTransaction(false)
	require.ErrorContains(t, d.Set(ro, []byte("k"), []byte("v")), "read-only")
	require.ErrorContains(t, d.Delete(ro, []byte("k")), "read-only")

	// No client before Start
	_, err = d.Get(ro, []byte("k"))
	require.ErrorIs(t, err, types.ErrBlobStoreUnavailable)
	it := d.NewIterator(ro, types.BlobIteratorOptions{})
	assert.False(t, it.Valid())
	require.ErrorIs(t, it.Err(), types.ErrBlobStoreUnavailable)

	require.NoError(t, ro.Commit())
	_, err = d.Get(ro, []byte("k"))
	require.ErrorContains(t, err, "already finished")
	require.ErrorIs(t, d.SetCommitTimestamp(1, nil), types.ErrNilTxn)
}

func TestIteratorOrder(t *testing.T) {
	keys := func() [][]byte {
		return [][]byte{[]byte("ct3"), []byte("ct1"), []byte("po1"), []byte("ct2")}
	}

	it := newS3Iterator(nil, nil, keys(), false, nil)
	var got []string
	for it.Seek([]byte("ct")); it.ValidForPrefix([]byte("ct")); it.Next() {
		got = append(got, string(it.Item().Key()))
	}
	assert.Equal(t, []string{"ct1", "ct2", "ct3"}, got)

	it = newS3Iterator(nil, nil, keys(), true, nil)
	it.Seek([]byte("ct2"))
	require.True(t, it.Valid())
	assert.Equal(t, []byte("ct2"), it.Item().Key())
	it.Next()
	assert.Equal(t, []byte("ct1"), it.Item().Key())
	it.Rewind()
	assert.Equal(t, []byte("po1"), it.Item().Key())

	it.Seek([]byte("a"))
	assert.False(t, it.Valid())
	assert.Nil(t, it.Item())
}

func TestStartRequiresBucket(t *testing.T) {
	d, err := NewWithOptions()
	require.NoError(t, err)
	require.ErrorContains(t, d.Start(), "bucket not set")
}

func TestRegisterMetrics(t *testing.T) {
	d, err := NewWithOptions(WithBucket("b"))
	require.NoError(t, err)
	registry := prometheus.NewRegistry()
	d.RegisterMetrics(registry)
	// Registering twice keeps the existing collectors
	d.RegisterMetrics(registry)
	d.metrics.observe(10)
	d.metrics.observe(5)
	assert.InDelta(t, 2, testutil.ToFloat64(d.metrics.opsTotal), 0)
	assert.InDelta(t, 15, testutil.ToFloat64(d.metrics.bytesTotal), 0)
}

func TestCmdlineOptions(t *testing.T) {
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "s3", "bucket", "govern"))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "s3", "prefix", "data"))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "s3", "endpoint", "http://127.0.0.1:9000"))
	t.Cleanup(func() {
		cmdlineOptions.bucket = ""
		cmdlineOptions.prefix = ""
		cmdlineOptions.endpoint = ""
	})
	p := NewFromCmdlineOptions()
	d, ok := p.(*BlobStoreS3)
	require.True(t, ok)
	assert.Equal(t, "govern", d.bucket)
	assert.Equal(t, "data/", d.prefix)
	assert.Equal(t, "http://127.0.0.1:9000", d.endpoint)
	// data-dir is not an S3 option
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "s3", "data-dir", "/tmp"))
}
