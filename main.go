package main

import "churn-alerts/internal/cli"

func main() {
	cli.Execute()
}
