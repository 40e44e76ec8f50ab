// Package s3 implements a pod.POD backed by an S3-compatible bucket, using
// delimiter listing to emulate directories the way the teacher's S3
// storage driver does.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/vistore/vistore/pod"
)

const driverName = "s3"

func init() {
	pod.Register(driverName, driverFactory{})
}

type driverFactory struct{}

func (driverFactory) Create(ctx context.Context, params map[string]string) (pod.POD, error) {
	bucket, ok := params["bucket"]
	if !ok || bucket == "" {
		return nil, fmt.Errorf("s3: missing bucket parameter")
	}
	sess, err := session.NewSession(&aws.Config{
		Region:   aws.String(params["region"]),
		Endpoint: aws.String(params["endpoint"]),
	})
	if err != nil {
		return nil, err
	}
	return New(sess, bucket, params["prefix"]), nil
}

// Client lists the single-object S3 calls the driver makes, satisfied by
// *s3.S3. Driver itself holds a concrete *s3.S3 and does not use this
// interface.
type Client interface {
	GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	DeleteObjectWithContext(ctx aws.Context, in *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error)
	ListObjectsV2WithContext(ctx aws.Context, in *s3.ListObjectsV2Input, opts ...request.Option) (*s3.ListObjectsV2Output, error)
}

// Driver is a pod.POD backed by one S3 bucket/prefix.
type Driver struct {
	bucket   string
	prefix   string
	s3       *s3.S3
	uploader *s3manager.Uploader
}

var _ pod.POD = (*Driver)(nil)

// New constructs a Driver against bucket, scoping every path under prefix.
func New(sess *session.Session, bucket, prefix string) *Driver {
	return &Driver{
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		s3:       s3.New(sess),
		uploader: s3manager.NewUploader(sess),
	}
}

func (d *Driver) key(p string) string {
	p = strings.Trim(p, "/")
	if d.prefix == "" {
		return p
	}
	if p == "" {
		return d.prefix
	}
	return d.prefix + "/" + p
}

func (d *Driver) Get(ctx context.Context, path string) ([]byte, error) {
	out, err := d.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(path)),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, pod.NotFoundError{Path: path}
		}
		return nil, pod.IOError{Path: path, Err: err}
	}
	defer out.Body.Close()

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, rerr := out.Body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if rerr != nil {
			break
		}
	}
	return buf, nil
}

func (d *Driver) Put(ctx context.Context, path string, data []byte) error {
	_, err := d.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(path)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return pod.IOError{Path: path, Err: err}
	}
	return nil
}

func (d *Driver) Rm(ctx context.Context, path string, recursive, missingOK bool) error {
	if recursive {
		return d.rmRecursive(ctx, path, missingOK)
	}
	if !missingOK {
		if _, err := d.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(d.bucket),
			Key:    aws.String(d.key(path)),
		}); err != nil {
			if aerr, ok := err.(awserr.Error); ok && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
				return pod.NotFoundError{Path: path}
			}
			return pod.IOError{Path: path, Err: err}
		}
	}
	_, err := d.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(path)),
	})
	if err != nil {
		return pod.IOError{Path: path, Err: err}
	}
	return nil
}

func (d *Driver) rmRecursive(ctx context.Context, path string, missingOK bool) error {
	prefix := d.key(path)
	if prefix != "" {
		prefix += "/"
	}

	var any bool
	err := d.s3.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, obj := range page.Contents {
			any = true
			d.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(d.bucket),
				Key:    obj.Key,
			})
		}
		return true
	})
	if err != nil {
		return pod.IOError{Path: path, Err: err}
	}
	if !any && !missingOK {
		return pod.NotFoundError{Path: path}
	}
	return nil
}

func (d *Driver) Ls(ctx context.Context, prefix string) ([]string, error) {
	key := d.key(prefix)
	if key != "" {
		key += "/"
	}

	seen := make(map[string]struct{})
	err := d.s3.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(d.bucket),
		Prefix:    aws.String(key),
		Delimiter: aws.String("/"),
	}, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, key), "/")
			seen[name] = struct{}{}
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(*obj.Key, key)
			seen[name] = struct{}{}
		}
		return true
	})
	if err != nil {
		return nil, pod.IOError{Path: prefix, Err: err}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		if n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (d *Driver) Walk(ctx context.Context, root string, maxDepth int, f pod.WalkFunc) error {
	base := strings.Trim(root, "/")
	return walkRecursive(ctx, d, base, maxDepth, func(path string, isDir bool) error {
		if base != "" {
			path = strings.TrimPrefix(path, base+"/")
		}
		return f(path, isDir)
	})
}

func walkRecursive(ctx context.Context, d *Driver, root string, depth int, f pod.WalkFunc) error {
	entries, err := d.Ls(ctx, root)
	if err != nil {
		return err
	}
	for _, name := range entries {
		rel := name
		if root != "" {
			rel = root + "/" + name
		}
		isDir := strings.HasSuffix(name, "/") || isPrefixDir(d, rel)

		err := f(rel, isDir)
		if err == pod.ErrSkipDir {
			continue
		}
		if err != nil {
			return err
		}
		if isDir && depth != 1 {
			next := depth
			if next > 0 {
				next--
			}
			if err := walkRecursive(ctx, d, rel, next, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func isPrefixDir(d *Driver, rel string) bool {
	children, err := d.Ls(context.Background(), rel)
	return err == nil && len(children) > 0
}

func (d *Driver) Cd(subdir string) pod.POD {
	return &Driver{
		bucket:   d.bucket,
		prefix:   d.key(subdir),
		s3:       d.s3,
		uploader: d.uploader,
	}
}
