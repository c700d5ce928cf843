/*
DESCRIPTION
  variables.go provides a table of the variables that can be used for
  encoder control. These structs provide the name and type of variable,
  a function for updating the variable in a Config from a string, and a
  validation function to check the validity of the variable's value.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2025 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ausocean/utils/logging"
)

// Config map keys.
const (
	KeyCodec          = "Codec"
	KeyProfile        = "Profile"
	KeyLevel          = "Level"
	KeyWidth          = "Width"
	KeyHeight         = "Height"
	KeyFrameRateNum   = "FrameRateNum"
	KeyFrameRateDen   = "FrameRateDen"
	KeyBitDepth       = "BitDepth"
	KeyIdrPeriod      = "IdrPeriod"
	KeyNumBFrames     = "NumBFrames"
	KeyBPyramid       = "BPyramid"
	KeyNumIFrames     = "NumIFrames"
	KeyRefFrames      = "RefFrames"
	KeyRefNumList0    = "RefNumList0"
	KeyRefNumList1    = "RefNumList1"
	KeyRateControl    = "RateControl"
	KeyAverageBitrate = "AverageBitrate"
	KeyQualityLevel   = "QualityLevel"
	KeyMinQP          = "MinQP"
	KeyMaxQP          = "MaxQP"
	KeyQPI            = "QPI"
	KeyQPP            = "QPP"
	KeyQPB            = "QPB"
	KeyNumSlices      = "NumSlices"
	KeyAUD            = "AUD"
	KeyCCInsert       = "CCInsert"
	KeyLogging        = "logging"
)

// Config map parameter types.
const (
	typeString = "string"
	typeUint   = "uint"
	typeBool   = "bool"
	typeEnum   = "enum"
)

var rateControlModes = map[string]int{
	"default":  RateControlDefault,
	"disabled": RateControlDisabled,
	"cbr":      RateControlCBR,
	"vbr":      RateControlVBR,
}

// Variable describes a control variable: its name and type, a function
// for updating the field in a Config, and a function for validating
// the value of the field.
type Variable struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}

// Update parses the configuration map and updates the config fields
// for the keys present, then validates the whole config.
func (c *Config) Update(vars map[string]string) error {
	for _, v := range Variables {
		if val, ok := vars[v.Name]; ok {
			v.Update(c, val)
		}
	}
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return c.Validate()
}

// Variables lists the encoder control variables.
var Variables = []Variable{
	{
		Name:   KeyCodec,
		Type:   typeString,
		Update: func(c *Config, v string) { c.Codec = strings.ToLower(v) },
	},
	{
		Name:   KeyProfile,
		Type:   typeString,
		Update: func(c *Config, v string) { c.Profile = strings.ToLower(v) },
	},
	{
		Name:   KeyLevel,
		Type:   typeString,
		Update: func(c *Config, v string) { c.Level = strings.ToLower(v) },
	},
	{
		Name:   KeyWidth,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Width = parseUint(KeyWidth, v, c) },
	},
	{
		Name:   KeyHeight,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Height = parseUint(KeyHeight, v, c) },
	},
	{
		Name:   KeyFrameRateNum,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.FrameRateNum = parseUint(KeyFrameRateNum, v, c) },
	},
	{
		Name:   KeyFrameRateDen,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.FrameRateDen = parseUint(KeyFrameRateDen, v, c) },
	},
	{
		Name:   KeyBitDepth,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.BitDepth = parseUint(KeyBitDepth, v, c) },
	},
	{
		Name:   KeyIdrPeriod,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.IdrPeriod = parseUint(KeyIdrPeriod, v, c) },
		Validate: func(c *Config) {
			if c.IdrPeriod > MaxIdrPeriod {
				c.Logger.Warning("IdrPeriod bad or too high, clamping", "IdrPeriod", int(c.IdrPeriod))
				c.IdrPeriod = MaxIdrPeriod
			}
		},
	},
	{
		Name:   KeyNumBFrames,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.NumBFrames = parseUint(KeyNumBFrames, v, c) },
	},
	{
		Name:   KeyBPyramid,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.BPyramid = parseBool(KeyBPyramid, v, c) },
	},
	{
		Name:   KeyNumIFrames,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.NumIFrames = parseUint(KeyNumIFrames, v, c) },
	},
	{
		Name:   KeyRefFrames,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.RefFrames = parseUint(KeyRefFrames, v, c) },
		Validate: func(c *Config) {
			if c.RefFrames > MaxRefFrames {
				c.Logger.Warning("RefFrames too high, clamping", "RefFrames", int(c.RefFrames))
				c.RefFrames = MaxRefFrames
			}
		},
	},
	{
		Name:   KeyRefNumList0,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.RefNumList0 = parseUint(KeyRefNumList0, v, c) },
	},
	{
		Name:   KeyRefNumList1,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.RefNumList1 = parseUint(KeyRefNumList1, v, c) },
	},
	{
		Name: KeyRateControl,
		Type: typeEnum,
		Update: func(c *Config, v string) {
			m, ok := rateControlModes[strings.ToLower(v)]
			if !ok {
				c.Logger.Warning("invalid rate control mode", "value", v)
				return
			}
			c.RateControl = m
		},
	},
	{
		Name:   KeyAverageBitrate,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.AverageBitrate = parseUint(KeyAverageBitrate, v, c) },
	},
	{
		Name:   KeyQualityLevel,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.QualityLevel = parseUint(KeyQualityLevel, v, c) },
	},
	{
		Name:   KeyMinQP,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.MinQP = parseUint(KeyMinQP, v, c) },
	},
	{
		Name:   KeyMaxQP,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.MaxQP = parseUint(KeyMaxQP, v, c) },
	},
	{
		Name:   KeyQPI,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.QPI = parseUint(KeyQPI, v, c) },
	},
	{
		Name:   KeyQPP,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.QPP = parseUint(KeyQPP, v, c) },
	},
	{
		Name:   KeyQPB,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.QPB = parseUint(KeyQPB, v, c) },
	},
	{
		Name:   KeyNumSlices,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.NumSlices = parseUint(KeyNumSlices, v, c) },
		Validate: func(c *Config) {
			if c.NumSlices == 0 || c.NumSlices > MaxNumSlices {
				c.Logger.Warning("NumSlices out of range, clamping", "NumSlices", int(c.NumSlices))
				if c.NumSlices == 0 {
					c.NumSlices = 1
				} else {
					c.NumSlices = MaxNumSlices
				}
			}
		},
	},
	{
		Name:   KeyAUD,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.AUD = parseBool(KeyAUD, v, c) },
	},
	{
		Name:   KeyCCInsert,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.CCInsert = parseBool(KeyCCInsert, v, c) },
	},
	{
		Name: KeyLogging,
		Type: typeString,
		Update: func(c *Config, v string) {
			switch strings.ToLower(v) {
			case "debug":
				c.LogLevel = logging.Debug
			case "info":
				c.LogLevel = logging.Info
			case "warning":
				c.LogLevel = logging.Warning
			case "error":
				c.LogLevel = logging.Error
			default:
				c.Logger.Warning("invalid logging level", "value", v)
			}
			c.Logger.SetLevel(c.LogLevel)
		},
	},
}

func parseUint(n, v string, c *Config) uint {
	_v, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(_v)
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expected bool for param %s", n), "value", v)
	}
	return
}
