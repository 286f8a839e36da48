// weathertracker は天気トラッカーのAPIサーバー・ワーカー・マイグレーションを起動する。
//
//	weathertracker [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/ratmeow/weather-tracker/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "weathertracker: %v\n", err)
		os.Exit(1)
	}
}
