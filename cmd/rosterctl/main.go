// rosterctl 命令行排班工具：在本地 YAML/JSON 输入上运行排班引擎
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/paiban/roster/internal/config"
	"github.com/paiban/roster/pkg/logger"
)

// app 命令共享的依赖
type app struct {
	cfg     *config.Config
	envFile string
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "rosterctl",
		Short:         "月度排班引擎命令行工具",
		Long:          `在本地输入文件上生成、评分与校验月度排班表。`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "环境变量文件（不存在时忽略）")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "输出调试日志")

	root.AddCommand(generateCmd(a))
	root.AddCommand(scoreCmd(a))
	root.AddCommand(validateCmd(a))
	root.AddCommand(rulesCmd())
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.App.LogLevel
	if a.verbose {
		level = "debug"
	}
	logger.Init(logger.Config{Level: level, Format: "console", Output: "stderr"})
	return nil
}
