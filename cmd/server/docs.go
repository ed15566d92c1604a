package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           PledgeDesk Admin API
// @version         1.0
// @description     Admin backend for pledge session management and execution.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
