/*
DESCRIPTION
  utils_test.go provides the test logger shared by the vulkan package
  tests.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2025 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vulkan_test

import (
	"fmt"
	"testing"

	"github.com/ausocean/utils/logging"
)

// testLogger will allow logging to be done by the testing pkg.
type testLogger testing.T

func (tl *testLogger) Debug(msg string, args ...interface{})   { tl.Log(logging.Debug, msg, args...) }
func (tl *testLogger) Info(msg string, args ...interface{})    { tl.Log(logging.Info, msg, args...) }
func (tl *testLogger) Warning(msg string, args ...interface{}) { tl.Log(logging.Warning, msg, args...) }
func (tl *testLogger) Error(msg string, args ...interface{})   { tl.Log(logging.Error, msg, args...) }
func (tl *testLogger) Fatal(msg string, args ...interface{})   { tl.Log(logging.Fatal, msg, args...) }
func (tl *testLogger) SetLevel(lvl int8)                       {}
func (tl *testLogger) Log(lvl int8, msg string, args ...interface{}) {
	if len(args) == 0 {
		((*testing.T)(tl)).Log(msg)
		return
	}
	((*testing.T)(tl)).Log(msg + fmt.Sprint(args...))
}
