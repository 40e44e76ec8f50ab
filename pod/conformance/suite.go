// Package conformance exercises every pod.POD backend against one shared
// behavioral contract, the way the teacher's storagedriver/testsuites
// package runs one DriverSuite against every storage driver.
package conformance

import (
	"context"
	"sort"

	"github.com/stretchr/testify/suite"

	"github.com/vistore/vistore/pod"
)

// Constructor builds a fresh, empty POD for one test.
type Constructor func() (pod.POD, error)

// Suite is a testify suite parameterized over a POD constructor.
type Suite struct {
	suite.Suite
	New Constructor
	pod pod.POD
}

// NewSuite returns a Suite that builds a fresh POD before every test.
func NewSuite(ctor Constructor) *Suite {
	return &Suite{New: ctor}
}

func (s *Suite) SetupTest() {
	p, err := s.New()
	s.Require().NoError(err)
	s.pod = p
}

func (s *Suite) TestPutGetRoundTrip() {
	ctx := context.Background()
	s.Require().NoError(s.pod.Put(ctx, "a/b/c", []byte("hello")))

	got, err := s.pod.Get(ctx, "a/b/c")
	s.Require().NoError(err)
	s.Equal([]byte("hello"), got)
}

func (s *Suite) TestGetMissingIsNotFound() {
	ctx := context.Background()
	_, err := s.pod.Get(ctx, "does/not/exist")
	s.Require().Error(err)
	s.True(pod.IsNotFound(err), "expected NotFoundError, got %v", err)
}

func (s *Suite) TestPutOverwrites() {
	ctx := context.Background()
	s.Require().NoError(s.pod.Put(ctx, "k", []byte("v1")))
	s.Require().NoError(s.pod.Put(ctx, "k", []byte("v2")))

	got, err := s.pod.Get(ctx, "k")
	s.Require().NoError(err)
	s.Equal([]byte("v2"), got)
}

func (s *Suite) TestLsListsDirectDescendants() {
	ctx := context.Background()
	s.Require().NoError(s.pod.Put(ctx, "ab/12345/data", []byte("x")))
	s.Require().NoError(s.pod.Put(ctx, "ab/67890/data", []byte("y")))
	s.Require().NoError(s.pod.Put(ctx, "cd/11111/data", []byte("z")))

	names, err := s.pod.Ls(ctx, "")
	s.Require().NoError(err)
	sort.Strings(names)
	s.Equal([]string{"ab", "cd"}, names)

	names, err = s.pod.Ls(ctx, "ab")
	s.Require().NoError(err)
	sort.Strings(names)
	s.Equal([]string{"12345", "67890"}, names)
}

func (s *Suite) TestRmRemovesExactKey() {
	ctx := context.Background()
	s.Require().NoError(s.pod.Put(ctx, "k", []byte("v")))
	s.Require().NoError(s.pod.Rm(ctx, "k", false, false))

	_, err := s.pod.Get(ctx, "k")
	s.True(pod.IsNotFound(err))
}

func (s *Suite) TestRmMissingOK() {
	ctx := context.Background()
	err := s.pod.Rm(ctx, "nope", false, true)
	s.NoError(err)
}

func (s *Suite) TestRmMissingNotOK() {
	ctx := context.Background()
	err := s.pod.Rm(ctx, "nope", false, false)
	s.Error(err)
}

func (s *Suite) TestRmRecursiveRemovesSubtree() {
	ctx := context.Background()
	s.Require().NoError(s.pod.Put(ctx, "ab/1/data", []byte("x")))
	s.Require().NoError(s.pod.Put(ctx, "ab/2/data", []byte("y")))

	s.Require().NoError(s.pod.Rm(ctx, "ab", true, false))

	names, err := s.pod.Ls(ctx, "")
	s.Require().NoError(err)
	s.Empty(names)
}

func (s *Suite) TestCdScopesPaths() {
	ctx := context.Background()
	sub := s.pod.Cd("scope")
	s.Require().NoError(sub.Put(ctx, "k", []byte("v")))

	got, err := s.pod.Get(ctx, "scope/k")
	s.Require().NoError(err)
	s.Equal([]byte("v"), got)

	got2, err := sub.Get(ctx, "k")
	s.Require().NoError(err)
	s.Equal([]byte("v"), got2)
}

func (s *Suite) TestWalkVisitsEveryEntry() {
	ctx := context.Background()
	s.Require().NoError(s.pod.Put(ctx, "ab/111/data", []byte("x")))
	s.Require().NoError(s.pod.Put(ctx, "cd/222/data", []byte("y")))

	var visited []string
	err := s.pod.Walk(ctx, "", 0, func(path string, isDir bool) error {
		if !isDir {
			visited = append(visited, path)
		}
		return nil
	})
	s.Require().NoError(err)
	sort.Strings(visited)
	s.Equal([]string{"ab/111/data", "cd/222/data"}, visited)
}
