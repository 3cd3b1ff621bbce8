package utils

import (
	"flag"
	"strings"
)

// CommaSeparatedFlags creates a struct which can be used with the Golang flag library,
// to allow passing a comma-separated list of strings as a single command-line argument.
// values holds the defaults, used if the flag is not given.
//
// Make sure to call InitFlag() on the returned struct before calling flag.Parse().
func CommaSeparatedFlags(name string, values []string, usage string) CommaSeparatedFlagsData {
	return CommaSeparatedFlagsData{
		Name:   name,
		Values: values,
		Info:   usage,
	}
}

type CommaSeparatedFlagsData struct {
	Name   string
	Values []string
	Info   string
}

// Set implements flag.Value. Surrounding whitespace is trimmed from each
// item and empty items are dropped.
func (csl *CommaSeparatedFlagsData) Set(values string) error {
	csl.Values = nil
	for _, v := range strings.Split(values, ",") {
		if v = strings.TrimSpace(v); v != "" {
			csl.Values = append(csl.Values, v)
		}
	}
	return nil
}

func (csl *CommaSeparatedFlagsData) String() string {
	return strings.Join(csl.Values, ",")
}

func (csl *CommaSeparatedFlagsData) InitFlag() {
	csl.InitFlagSet(flag.CommandLine)
}

// InitFlagSet registers the flag on fs.
func (csl *CommaSeparatedFlagsData) InitFlagSet(fs *flag.FlagSet) {
	fs.Var(csl, csl.Name, csl.Info)
}
