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
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/blinklabs-io/govern/database/plugin"
	"github.com/blinklabs-io/govern/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultTimeout = 60 * time.Second

// BlobStoreS3 stores blob records as objects in an S3 bucket. Object names
// are the hex encoded blob key under an optional prefix, which keeps the
// listing order identical to the byte order of the keys
type BlobStoreS3 struct {
	promRegistry prometheus.Registerer
	logger       *slog.Logger
	client       *s3.Client
	metrics      *blobMetrics
	bucket       string
	prefix       string
	region       string
	endpoint     string
	timeout      time.Duration
}

// s3Txn satisfies types.Txn. Writes go straight to the bucket, so commit and
// rollback only mark the handle as finished
type s3Txn struct {
	store     *BlobStoreS3
	finished  bool
	readWrite bool
}

// New creates an S3 blob store from a location of the form
// s3://bucket[/prefix]
func New(
	location string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*BlobStoreS3, error) {
	bucket, prefix, err := parseLocation(location)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(
		WithBucket(bucket),
		WithPrefix(prefix),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

func parseLocation(location string) (string, string, error) {
	const scheme = "s3://"
	if !strings.HasPrefix(location, scheme) {
		return "", "", errors.New(
			"s3 blob: expected location 's3://<bucket>[/prefix]'",
		)
	}
	parts := strings.SplitN(strings.TrimPrefix(location, scheme), "/", 2)
	if parts[0] == "" {
		return "", "", errors.New("s3 blob: bucket not set")
	}
	prefix := ""
	if len(parts) > 1 {
		prefix = parts[1]
	}
	return parts[0], normalizePrefix(prefix), nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// NewWithOptions creates an S3 blob store using options. The client is
// created by Start
func NewWithOptions(opts ...BlobStoreS3OptionFunc) (*BlobStoreS3, error) {
	d := &BlobStoreS3{}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = plugin.DiscardLogger()
	}
	d.prefix = normalizePrefix(d.prefix)
	if d.timeout == 0 {
		d.timeout = defaultTimeout
	}
	return d, nil
}

// Start implements the plugin.Plugin interface
func (d *BlobStoreS3) Start() error {
	if d.bucket == "" {
		return errors.New("s3 blob: bucket not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("s3 blob: load default AWS config: %w", err)
	}
	if d.region != "" {
		awsCfg.Region = d.region
	}
	d.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if d.endpoint != "" {
			o.BaseEndpoint = aws.String(d.endpoint)
			o.UsePathStyle = true
		}
	})
	if d.promRegistry != nil {
		d.registerBlobMetrics()
	}
	d.logf(slog.LevelDebug, "using bucket %q with prefix %q", d.bucket, d.prefix)
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *BlobStoreS3) Stop() error {
	return nil
}

// Close implements the BlobStore interface
func (d *BlobStoreS3) Close() error {
	return d.Stop()
}

// Client returns the S3 client, or nil before Start
func (d *BlobStoreS3) Client() *s3.Client {
	return d.client
}

// Bucket returns the configured bucket name
func (d *BlobStoreS3) Bucket() string {
	return d.bucket
}

func (d *BlobStoreS3) logf(level slog.Level, msg string, args ...any) {
	d.logger.Log(
		context.Background(),
		level,
		"blob DB: "+fmt.Sprintf(msg, args...),
		"component", "database",
	)
}

func (d *BlobStoreS3) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.timeout)
}

// objectKey maps a blob key to its object name
func (d *BlobStoreS3) objectKey(key []byte) string {
	return d.prefix + hex.EncodeToString(key)
}

// blobKey maps an object name back to its blob key
func (d *BlobStoreS3) blobKey(objectKey string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(objectKey, d.prefix))
}

// NewTransaction returns a lightweight transaction handle
func (d *BlobStoreS3) NewTransaction(readWrite bool) types.Txn {
	return &s3Txn{store: d, readWrite: readWrite}
}

func (d *BlobStoreS3) validateTxn(txn types.Txn, write bool) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	t, ok := txn.(*s3Txn)
	if !ok || t.store != d {
		return types.ErrTxnWrongType
	}
	if t.finished {
		return errors.New("transaction already finished")
	}
	if write && !t.readWrite {
		return errors.New("transaction is read-only")
	}
	if d.client == nil {
		return types.ErrBlobStoreUnavailable
	}
	return nil
}

// Get retrieves a value within a transaction
func (d *BlobStoreS3) Get(txn types.Txn, key []byte) ([]byte, error) {
	if err := d.validateTxn(txn, false); err != nil {
		return nil, err
	}
	ctx, cancel := d.opContext()
	defer cancel()
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, types.ErrBlobKeyNotFound
		}
		d.logf(slog.LevelError, "get %x failed: %v", key, err)
		return nil, err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 blob: read %x: %w", key, err)
	}
	d.metrics.observe(len(data))
	return data, nil
}

// Set stores a key-value pair within a transaction
func (d *BlobStoreS3) Set(txn types.Txn, key, val []byte) error {
	if err := d.validateTxn(txn, true); err != nil {
		return err
	}
	ctx, cancel := d.opContext()
	defer cancel()
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.objectKey(key)),
		Body:   bytes.NewReader(val),
	})
	if err != nil {
		d.logf(slog.LevelError, "put %x failed: %v", key, err)
		return err
	}
	d.metrics.observe(len(val))
	return nil
}

// Delete removes a key within a transaction
func (d *BlobStoreS3) Delete(txn types.Txn, key []byte) error {
	if err := d.validateTxn(txn, true); err != nil {
		return err
	}
	ctx, cancel := d.opContext()
	defer cancel()
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return types.ErrBlobKeyNotFound
		}
		d.logf(slog.LevelError, "delete %x failed: %v", key, err)
		return err
	}
	d.metrics.observe(0)
	return nil
}

// NewIterator lists the matching keys up front. Values are fetched lazily
// through the transaction that created the iterator
func (d *BlobStoreS3) NewIterator(
	txn types.Txn,
	opts types.BlobIteratorOptions,
) types.BlobIterator {
	if err := d.validateTxn(txn, false); err != nil {
		return &s3Iterator{err: err}
	}
	keys, err := d.listKeys(opts)
	if err != nil {
		d.logf(slog.LevelError, "list failed: %v", err)
	}
	return newS3Iterator(d, txn, keys, opts.Reverse, err)
}

func (d *BlobStoreS3) listKeys(
	opts types.BlobIteratorOptions,
) ([][]byte, error) {
	ctx, cancel := d.opContext()
	defer cancel()
	paginator := s3.NewListObjectsV2Paginator(
		d.client,
		&s3.ListObjectsV2Input{
			Bucket: aws.String(d.bucket),
			Prefix: aws.String(d.objectKey(opts.Prefix)),
		},
	)
	var keys [][]byte
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			key, err := d.blobKey(aws.ToString(obj.Key))
			if err != nil {
				// Not written by this store
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
		return true
	}
	var noSuchKey *s3types.NoSuchKey
	return errors.As(err, &noSuchKey)
}

func (t *s3Txn) Commit() error {
	t.finished = true
	return nil
}

func (t *s3Txn) Rollback() error {
	t.finished = true
	return nil
}

type s3Iterator struct {
	store   *BlobStoreS3
	txn     types.Txn
	err     error
	keys    [][]byte
	idx     int
	reverse bool
}

func newS3Iterator(
	store *BlobStoreS3,
	txn types.Txn,
	keys [][]byte,
	reverse bool,
	err error,
) *s3Iterator {
	sort.Slice(keys, func(i, j int) bool {
		if reverse {
			return bytes.Compare(keys[i], keys[j]) > 0
		}
		return bytes.Compare(keys[i], keys[j]) < 0
	})
	return &s3Iterator{
		store:   store,
		txn:     txn,
		keys:    keys,
		reverse: reverse,
		err:     err,
	}
}

func (it *s3Iterator) Rewind() {
	it.idx = 0
}

// Seek moves to the first key at or past target in iteration order
func (it *s3Iterator) Seek(target []byte) {
	it.idx = len(it.keys)
	for i, key := range it.keys {
		cmp := bytes.Compare(key, target)
		if (!it.reverse && cmp >= 0) || (it.reverse && cmp <= 0) {
			it.idx = i
			return
		}
	}
}

func (it *s3Iterator) Valid() bool {
	return it.err == nil && it.idx < len(it.keys)
}

func (it *s3Iterator) ValidForPrefix(prefix []byte) bool {
	return it.Valid() && bytes.HasPrefix(it.keys[it.idx], prefix)
}

func (it *s3Iterator) Next() {
	if it.idx < len(it.keys) {
		it.idx++
	}
}

func (it *s3Iterator) Item() types.BlobItem {
	if !it.Valid() {
		return nil
	}
	return &s3Item{store: it.store, txn: it.txn, key: it.keys[it.idx]}
}

func (it *s3Iterator) Err() error {
	return it.err
}

func (it *s3Iterator) Close() {}

type s3Item struct {
	store *BlobStoreS3
	txn   types.Txn
	key   []byte
}

func (i *s3Item) Key() []byte {
	return bytes.Clone(i.key)
}

func (i *s3Item) ValueCopy(dst []byte) ([]byte, error) {
	data, err := i.store.Get(i.txn, i.key)
	if err != nil {
		return nil, err
	}
	return append(dst[:0], data...), nil
}
