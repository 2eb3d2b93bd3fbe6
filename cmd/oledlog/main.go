package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/juju/errors"
	"github.com/temoto/oledlog/cmd/oledlog/console"
	"github.com/temoto/oledlog/cmd/oledlog/mqtt"
	"github.com/temoto/oledlog/cmd/oledlog/show"
	"github.com/temoto/oledlog/cmd/oledlog/subcmd"
	"github.com/temoto/oledlog/log2"
	"github.com/temoto/oledlog/state"
)

var log = log2.NewStderr(log2.LInfo)

var modules = []subcmd.Mod{
	show.TextMod,
	show.IntMod,
	show.QRMod,
	console.Mod,
	mqtt.Mod,
}

func main() {
	flagset := flag.NewFlagSet("oledlog", flag.ContinueOnError)
	flagConfig := flagset.String("config", "oledlog.hcl", "")
	flagset.Usage = func() {
		fmt.Fprintf(flagset.Output(), "usage: oledlog [-config FILE] COMMAND [ARGS]\ncommands:\n%s", subcmd.Usage(modules))
		flagset.PrintDefaults()
	}
	if err := flagset.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	mod, err := subcmd.Parse(flagset.Arg(0), modules)
	if err != nil {
		log.Error(err)
		flagset.Usage()
		os.Exit(2)
	}

	if subcmd.SdNotify("start") {
		// we're under systemd, assume systemd journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}
	log.SetPrefix(mod.Name + ": ")
	log.Debugf("starting command=%s", mod.Name)

	ctx, _ := state.NewContext(log)
	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	if err := mod.Main(ctx, config, flagset.Args()[1:]); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}
