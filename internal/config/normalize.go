package config

import "strings"

func (c *Config) normalize() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.LockDir, err = expandPath(c.Paths.LockDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.History.Path) != "" {
		if c.History.Path, err = expandPath(c.History.Path); err != nil {
			return err
		}
	}

	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.Prefix = strings.Trim(strings.TrimSpace(c.Storage.Prefix), "/")
	c.Storage.PublicHost = strings.TrimRight(strings.TrimSpace(c.Storage.PublicHost), "/")
	c.DocAI.ProjectID = strings.TrimSpace(c.DocAI.ProjectID)
	c.DocAI.ProcessorID = strings.TrimSpace(c.DocAI.ProcessorID)
	c.Gemini.ProjectID = strings.TrimSpace(c.Gemini.ProjectID)
	c.OCR.Binary = strings.TrimSpace(c.OCR.Binary)
	c.Verification.SamplePages = strings.ToLower(strings.TrimSpace(c.Verification.SamplePages))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Daemon.MarkerName = strings.TrimSpace(c.Daemon.MarkerName)

	if c.Verification.SamplePages == "" {
		c.Verification.SamplePages = "first-last"
	}
	if c.Daemon.MarkerName == "" {
		c.Daemon.MarkerName = ".docmill_done.json"
	}
	return nil
}
