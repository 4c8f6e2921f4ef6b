// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestBindFlags_BasicTypes(t *testing.T) {
	type params struct {
		Name     string        `flag:"name" desc:"the name"`
		Verbose  bool          `flag:"verbose,v" desc:"enable verbose output"`
		Count    int           `flag:"count" desc:"number of items"`
		Offset   int64         `flag:"offset" desc:"byte offset"`
		Interval time.Duration `flag:"interval" desc:"progress interval"`
		Types    []string      `flag:"types" desc:"record types"`
		Untagged string
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	err := flagSet.Parse([]string{
		"--name", "crawl",
		"-v",
		"--count", "42",
		"--offset", "1099511627776",
		"--interval", "30s",
		"--types", "response,resource",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Name != "crawl" || !p.Verbose || p.Count != 42 || p.Offset != 1099511627776 {
		t.Errorf("params = %+v", p)
	}
	if p.Interval != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", p.Interval)
	}
	if strings.Join(p.Types, "|") != "response|resource" {
		t.Errorf("Types = %v", p.Types)
	}
	if flagSet.Lookup("untagged") != nil {
		t.Error("untagged field was bound")
	}
}

func TestBindFlags_Defaults(t *testing.T) {
	type params struct {
		Backend  string        `flag:"backend" default:"sqlite"`
		Limit    int           `flag:"limit" default:"10"`
		Max      int64         `flag:"max" default:"100"`
		Interval time.Duration `flag:"interval" default:"10s"`
		HTTPOnly bool          `flag:"http-only" default:"true"`
		Types    []string      `flag:"types" default:"response,resource"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Backend != "sqlite" || p.Limit != 10 || p.Max != 100 || p.Interval != 10*time.Second || !p.HTTPOnly {
		t.Errorf("params = %+v", p)
	}
	if len(p.Types) != 2 {
		t.Errorf("Types = %v", p.Types)
	}
}

func TestBindFlags_Embedded(t *testing.T) {
	type shared struct {
		Config string `flag:"config,c" desc:"config file"`
	}
	type params struct {
		shared
		JSONOutput
		Limit int `flag:"limit"`
	}

	var p params
	flagSet := FlagsFromParams("test", &p)
	if err := flagSet.Parse([]string{"-c", "/etc/warcindex.yaml", "--json", "--limit", "5"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Config != "/etc/warcindex.yaml" || !p.OutputJSON || p.Limit != 5 {
		t.Errorf("params = %+v", p)
	}
}

func TestBindFlags_Errors(t *testing.T) {
	var notStruct int
	if err := BindFlags(&notStruct, pflag.NewFlagSet("test", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted a non-struct")
	}

	type badDefault struct {
		Limit int `flag:"limit" default:"ten"`
	}
	if err := BindFlags(&badDefault{}, pflag.NewFlagSet("test", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted an unparseable default")
	}

	type unsupported struct {
		Ratio float32 `flag:"ratio"`
	}
	err := BindFlags(&unsupported{}, pflag.NewFlagSet("test", pflag.ContinueOnError))
	if err == nil || !strings.Contains(err.Error(), "unsupported type") {
		t.Errorf("error = %v, want unsupported type", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("FlagsFromParams did not panic on invalid params")
		}
	}()
	FlagsFromParams("test", unsupported{})
}
