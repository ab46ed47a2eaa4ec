// Copyright 2020 The Hyperschedule Authors
// This file is part of the hyperschedule library.
//
// The hyperschedule library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The hyperschedule library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the hyperschedule library. If not, see <http://www.gnu.org/licenses/>.

package persist

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"golang.org/x/time/rate"

	"github.com/hyperschedule/hyperschedule-api/course"
)

// Default object location of the remote course cache.
const (
	DefaultBucket = "hyperschedule"
	DefaultKey    = "courses.json"
)

// DefaultWriteInterval is the minimum time between two uploads, independent
// of the webhook limiter.
const DefaultWriteInterval = 5 * time.Minute

// S3Store caches the tree in an object store bucket. Uploads are rate
// limited; a Write landing inside the cool-down window is dropped silently.
type S3Store struct {
	api     s3iface.S3API
	bucket  string
	key     string
	limiter *rate.Limiter
}

// NewS3Store creates an object-store-backed cache on the given S3 API.
func NewS3Store(api s3iface.S3API, bucket, key string) *S3Store {
	return &S3Store{
		api:     api,
		bucket:  bucket,
		key:     key,
		limiter: rate.NewLimiter(rate.Every(DefaultWriteInterval), 1),
	}
}

// Read downloads and decodes the cached tree.
func (s *S3Store) Read() (course.Value, error) {
	out, err := s.api.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	return course.Decode(data)
}

// Write uploads the tree unless a previous upload happened too recently.
func (s *S3Store) Write(tree course.Value) error {
	if !s.limiter.Allow() {
		return nil
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	_, err = s.api.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   bytes.NewReader(data),
	})
	return err
}
