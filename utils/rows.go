package utils

import (
	"strconv"
	"strings"
)

// UniqueRows returns the distinct rows of a table of small non-negative
// integers, such as derivative-order requests. Rows compare by exact
// equality. The order of the returned rows is unspecified; callers rely
// only on membership and count.
func UniqueRows(rows [][]int) [][]int {
	seen := make(map[string]struct{}, len(rows))
	unique := make([][]int, 0, len(rows))
	for _, row := range rows {
		key := rowKey(row)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, row)
	}
	return unique
}

func rowKey(row []int) string {
	var sb strings.Builder
	for _, v := range row {
		sb.WriteString(strconv.Itoa(v))
		sb.WriteByte(',')
	}
	return sb.String()
}
