package main

import "github.com/FACorreiaa/tournament-auth/internal/cli"

// @title                      Tournament Auth API
// @version                    1.0
// @description                Authentication, password policy and access control for the tournament backend.
// @host                       localhost:8000
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	cli.Execute()
}
