package memory

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vistore/vistore/pod"
	"github.com/vistore/vistore/pod/conformance"
)

func TestMemoryDriverSuite(t *testing.T) {
	suite.Run(t, conformance.NewSuite(func() (pod.POD, error) {
		return New(), nil
	}))
}
