package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/bjarke-xyz/course-applications/internal/cmd"
	"github.com/bjarke-xyz/course-applications/internal/repository"
)

type ServeCmd struct{}

func (s *ServeCmd) Run(cfg *cmd.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	return cmd.ServerCmd(ctx, *cfg)
}

type MigrateCmd struct {
	Direction string `arg:"" optional:"" enum:"up,down" default:"up" help:"Migrate up or down."`
}

func (m *MigrateCmd) Run(cfg *cmd.Config) error {
	direction, err := repository.ParseDirection(m.Direction)
	if err != nil {
		return err
	}
	return cmd.MigrateCmd(*cfg, direction)
}

var cli struct {
	Serve   ServeCmd   `cmd:"" default:"1" help:"Serve the applications web app."`
	Migrate MigrateCmd `cmd:"" help:"Run database migrations."`
}

func main() {
	ctx := kong.Parse(&cli)
	cfg, err := cmd.LoadConfig()
	ctx.FatalIfErrorf(err)
	err = ctx.Run(&cfg)
	ctx.FatalIfErrorf(err)
}
