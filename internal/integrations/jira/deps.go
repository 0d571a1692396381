package jira

import (
	"sprintreport/internal/config"
	"sprintreport/internal/domain"
	"sprintreport/internal/httpx"
)

type Config = config.Config
type Sprint = domain.Sprint
type Epic = domain.Epic
type Issue = domain.Issue

var externalHTTPClient = httpx.ExternalHTTPClient()
