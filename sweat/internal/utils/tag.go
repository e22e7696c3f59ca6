package utils

import (
	"reflect"
	"strings"
)

type DBTag struct {
	Column        string
	PrimaryKey    bool
	AutoIncrement bool
	ReadOnly      bool
}

func ParseTag(tagString reflect.StructTag) DBTag {
	parts := strings.Split(tagString.Get("db"), ",")

	tag := DBTag{}

	for i, part := range parts {
		if i == 0 {
			if part != "-" {
				tag.Column = part
			}

			continue
		}

		if part == "primaryKey" {
			tag.PrimaryKey = true

			continue
		}

		if part == "autoIncrement" {
			tag.AutoIncrement = true

			continue
		}

		if part == "readOnly" {
			tag.ReadOnly = true

			continue
		}
	}

	return tag
}

type RelTag struct {
	Declared bool
	Local    string
	Target   string
}

func ParseRelTag(tagString reflect.StructTag) RelTag {
	raw, declared := tagString.Lookup("rel")
	if !declared {
		return RelTag{}
	}

	tag := RelTag{Declared: true}

	for _, part := range strings.Split(raw, ",") {
		if strings.HasPrefix(part, "local=") {
			tag.Local = strings.TrimPrefix(part, "local=")

			continue
		}

		if strings.HasPrefix(part, "target=") {
			tag.Target = strings.TrimPrefix(part, "target=")

			continue
		}
	}

	return tag
}
