package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"tractor.dev/toolkit-go/engine/cli"

	"tractor.dev/counterfs"
	"tractor.dev/counterfs/fs/fusekit"
)

func mountCmd() *cli.Command {
	var (
		debug bool
		logs  logFlags
	)
	cmd := &cli.Command{
		Usage: "mount <dir>",
		Short: "mount counterfs with FUSE",
		Args:  cli.ExactArgs(1),
		Run: func(ctx *cli.Context, args []string) {
			logger, err := logs.setup()
			fatal(err)

			fsys := counterfs.New(
				counterfs.WithLogger(logger),
				counterfs.WithOwner(os.Getuid(), os.Getgid()),
			)
			fatal(fsys.Mount())

			mount, err := fusekit.Mount(fsys, args[0], fusekit.Options{
				Debug: debug,
				Log:   logger,
			})
			if err != nil {
				log.Fatalf("Mount fail: %v\n", err)
			}
			defer func() {
				if err := mount.Close(); err != nil {
					log.Fatalf("Failed to unmount: %v\n", err)
				}
			}()

			log.Printf("Mounted at %s ...", args[0])

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			<-sigChan
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "trace FUSE requests")
	logs.register(cmd)
	return cmd
}
