// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import "github.com/luxfi/bridge"

// Return codes of the C ABI.
const (
	codeOK     = 0
	codeFailed = -1
)

// coreArgument is struct CoreArgument after its C strings were copied;
// null strings are "".
type coreArgument struct {
	storagePath      string
	cachePath        string
	engineSocketPath string
	engineTCPPort    string
	viewSocketPath   string
	viewTCPPort      string
	token            string
	enableCache      int32
	streamTimeoutMS  int64
}

func (a coreArgument) config() bridge.Config {
	return bridge.NewConfig(bridge.CoreArgument{
		StoragePath:      a.storagePath,
		CachePath:        a.cachePath,
		EngineSocketPath: a.engineSocketPath,
		EngineTCPPort:    a.engineTCPPort,
		ViewSocketPath:   a.viewSocketPath,
		ViewTCPPort:      a.viewTCPPort,
		Token:            a.token,
		EnableCache:      a.enableCache,
		StreamTimeoutMS:  a.streamTimeoutMS,
	})
}

// resultCode maps an error to codeOK or codeFailed.
func resultCode(err error) int {
	if err != nil {
		return codeFailed
	}
	return codeOK
}

// cacheMutationCode reports success for cache writes; they are accepted
// and dropped.
func cacheMutationCode(error) int { return codeOK }

func boolCode(ok bool, _ error) int {
	if ok {
		return 1
	}
	return 0
}
