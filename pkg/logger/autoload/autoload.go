// Package autoload initializes the global logger from the environment on
// import.
package autoload

import (
	configx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/config"
	logx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/logger"
)

func init() {
	cfg, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*cfg)
}
