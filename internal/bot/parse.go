package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePageArg extracts a positive page number from a command argument.
func ParsePageArg(args string) (int, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, fmt.Errorf("usage: /page <n>")
	}
	page, err := strconv.Atoi(fields[0])
	if err != nil || page < 1 {
		return 0, fmt.Errorf("invalid page %q", fields[0])
	}
	return page, nil
}

// ParseIDList extracts listing identifiers separated by spaces or commas.
func ParseIDList(args string) ([]int64, error) {
	fields := strings.FieldsFunc(args, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("listing ID is required")
	}

	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(strings.TrimPrefix(f, "#"), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid listing ID %q", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
