// Package export renders question sets for download.
package export

import (
	"fmt"
	"strings"

	"github.com/radhikaramasamy/snipreader/api/internal/question"
)

const dateLayout = "2006-01-02 15:04"

// Text renders one set as plain text. Options whose letter occurs in the answer are marked with "*".
func Text(set question.Set) string {
	var b strings.Builder
	writeSet(&b, set)
	return b.String()
}

// TextMany renders several sets one after another, numbered.
func TextMany(sets []question.Set) string {
	var b strings.Builder
	for i, s := range sets {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Set %d: ", i+1)
		writeSet(&b, s)
	}
	return b.String()
}

func writeSet(b *strings.Builder, set question.Set) {
	b.WriteString(set.Title)
	b.WriteString("\n")
	if !set.CreatedAt.IsZero() {
		fmt.Fprintf(b, "Created: %s\n", set.CreatedAt.Format(dateLayout))
	}
	for i, q := range set.Questions {
		fmt.Fprintf(b, "\nQuestion %d: %s\n", i+1, q.Text)
		for j, o := range q.Options {
			mark := " "
			if q.Highlighted(j) {
				mark = "*"
			}
			fmt.Fprintf(b, "%s %s) %s\n", mark, question.Label(j), o)
		}
		if q.Answered() {
			fmt.Fprintf(b, "Answer: %s\n", q.Answer)
		}
		if q.Explanation != "" {
			fmt.Fprintf(b, "Explanation: %s\n", q.Explanation)
		}
	}
}
