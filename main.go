package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"uploadreporter/handler"
)

func init() {
	handler.InitializeClients()
}

func main() {
	lambda.Start(handler.Handler)
}
