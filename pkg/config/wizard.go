package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/AlecAivazis/survey/v2"
)

// WizardSurvey walks through the handful of settings that differ from
// robot to robot.  Anything not asked about keeps its current value.
func (c *Config) WizardSurvey(wouldOverwrite bool) error {
	if err := c.bigScaryOverwriteWarning(wouldOverwrite); err != nil {
		return err
	}

	answers := struct {
		URL          string
		Bind         string
		Timezone     string
		WaitAttempts string
	}{}

	waitOpts := []string{"10", "20", "60", "120"}
	curWait := strconv.Itoa(c.MapStore.WaitAttempts)
	if !slices.Contains(waitOpts, curWait) {
		waitOpts = append([]string{curWait}, waitOpts...)
	}

	qs := []*survey.Question{
		{
			Name: "URL",
			Prompt: &survey.Input{
				Message: "rosbridge address of the robot",
				Default: c.Robot.URL,
			},
			Validate: survey.Required,
		},
		{
			Name: "Bind",
			Prompt: &survey.Input{
				Message: "Address to serve the operator page on",
				Default: c.Web.Bind,
			},
			Validate: survey.Required,
		},
		{
			Name: "Timezone",
			Prompt: &survey.Input{
				Message: "Timezone for map timestamps",
				Default: c.MapStore.Timezone,
				Help:    "An IANA zone such as America/Chicago, or Local.",
			},
			Validate: func(ans interface{}) error {
				s, _ := ans.(string)
				if s == "" || s == "Local" {
					return nil
				}
				_, err := time.LoadLocation(s)
				return err
			},
		},
		{
			Name: "WaitAttempts",
			Prompt: &survey.Select{
				Message: "How long to wait for map storage to start",
				Options: waitOpts,
				Default: curWait,
				Help:    "Checks are one interval apart, one second by default.",
			},
		},
	}

	if err := survey.Ask(qs, &answers); err != nil {
		return err
	}

	c.Robot.URL = answers.URL
	c.Web.Bind = answers.Bind
	c.MapStore.Timezone = answers.Timezone
	c.MapStore.WaitAttempts, _ = strconv.Atoi(answers.WaitAttempts)

	regen := false
	if c.Web.AccessPhrase != "" {
		if err := survey.AskOne(&survey.Confirm{
			Message: "Roll a new access phrase?",
		}, &regen); err != nil {
			return err
		}
	}
	if regen {
		c.Web.AccessPhrase = ""
	}
	c.populateRequiredElements()
	return c.Validate()
}

func (c *Config) bigScaryOverwriteWarning(wouldOverwrite bool) error {
	if !wouldOverwrite {
		return nil
	}

	fmt.Fprintf(os.Stderr, "%s already exists and will be updated in place.\n", c.path)
	ok := false
	if err := survey.AskOne(&survey.Confirm{
		Message: "Continue?",
	}, &ok); err != nil {
		return err
	}
	if !ok {
		return errors.New("refusing to overwrite existing configuration")
	}
	return nil
}
