package sqltext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
)

type rule struct {
	re   *regexp.Regexp
	desc string
}

func keyword(word string) rule {
	return rule{re: regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])` + word + `(?:[^a-zA-Z_]|$)`), desc: word}
}

func pattern(expr, desc string) rule {
	return rule{re: regexp.MustCompile(expr), desc: desc}
}

func keywords(words ...string) []rule {
	rules := make([]rule, len(words))
	for i, w := range words {
		rules[i] = keyword(w)
	}
	return rules
}

// commonKeywords are DML/DDL keywords refused on every SQL backend.
var commonKeywords = keywords("INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE", "GRANT", "REVOKE")

var setStatement = regexp.MustCompile(`(?i)(?:^|;)\s*SET\b`)

// guardRules holds the per-backend additions. functions are matched against the
// raw statement (they are dangerous even when hidden from the keyword pass);
// keywords against the statement with literals and comments removed.
var guardRules = map[backend.Kind]struct {
	functions []rule
	keywords  []rule
	extra     func(cleaned string) error
}{
	backend.SQLite: {
		functions: []rule{
			pattern(`(?i)\bload_extension\s*\(`, "load_extension()"),
			pattern(`(?i)\bwritefile\s*\(`, "writefile()"),
			pattern(`(?i)\bedit\s*\(`, "edit()"),
			pattern(`(?i)\bfts3_tokenizer\s*\(`, "fts3_tokenizer()"),
		},
		keywords: keywords("REPLACE", "ATTACH", "DETACH", "REINDEX", "VACUUM"),
		extra: func(cleaned string) error {
			if pragmaWrite.MatchString(cleaned) {
				return fmt.Errorf("PRAGMA writes are not allowed")
			}
			return nil
		},
	},
	backend.Postgres: {
		functions: []rule{
			pattern(`(?i)\bCOPY\s+.*\bTO\b`, "COPY ... TO"),
			pattern(`(?i)\bCOPY\s+.*\bFROM\b`, "COPY ... FROM"),
			pattern(`(?i)\bpg_read_file\s*\(`, "pg_read_file()"),
			pattern(`(?i)\bpg_read_binary_file\s*\(`, "pg_read_binary_file()"),
			pattern(`(?i)\bpg_ls_dir\s*\(`, "pg_ls_dir()"),
			pattern(`(?i)\blo_import\s*\(`, "lo_import()"),
			pattern(`(?i)\blo_export\s*\(`, "lo_export()"),
			pattern(`(?i)\bpg_sleep(_for|_until)?\s*\(`, "pg_sleep()"),
			pattern(`(?i)\bpg_(try_)?advisory(_xact)?_lock\s*\(`, "pg_advisory_lock()"),
		},
		keywords: keywords("CALL", "EXECUTE", "COPY", "LISTEN", "NOTIFY", "PREPARE", "DEALLOCATE", "VACUUM", "REINDEX", "CLUSTER"),
	},
	backend.MySQL: {
		functions: []rule{
			pattern(`(?i)\bINTO\s+OUTFILE\b`, "INTO OUTFILE"),
			pattern(`(?i)\bINTO\s+DUMPFILE\b`, "INTO DUMPFILE"),
			pattern(`(?i)\bLOAD_FILE\s*\(`, "LOAD_FILE()"),
			pattern(`(?i)\bINTO\s+@`, "INTO @variable"),
			pattern(`(?i)\bSLEEP\s*\(`, "SLEEP()"),
			pattern(`(?i)\bBENCHMARK\s*\(`, "BENCHMARK()"),
			pattern(`(?i)\b(GET|RELEASE|IS_FREE|IS_USED)_LOCK\s*\(`, "user-level lock functions"),
			pattern(`(?i)\b(MASTER|SOURCE)_POS_WAIT\s*\(`, "replication wait functions"),
			pattern(`(?i)\bWAIT_(FOR_EXECUTED_GTID_SET|UNTIL_SQL_THREAD_AFTER_GTIDS)\s*\(`, "replication wait functions"),
		},
		keywords: keywords("CALL", "EXEC", "EXECUTE", "REPLACE", "LOAD", "HANDLER", "RENAME"),
	},
}

var pragmaWrite = regexp.MustCompile(`(?i)\bPRAGMA\s+\w+\s*=`)

// ValidateReadOnly refuses anything that is not a single plain read on the
// given backend. It is applied only when the gateway runs in read-only mode.
func ValidateReadOnly(k backend.Kind, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return fmt.Errorf("empty query")
	}
	if !IsRead(k, sql) {
		return fmt.Errorf("read-only mode: only %s queries are allowed", ReadKeyword)
	}
	if len(Split(k, sql)) > 1 {
		return fmt.Errorf("multiple statements are not allowed")
	}

	cleaned := StripStringsAndComments(k, sql)
	for _, r := range commonKeywords {
		if r.re.MatchString(cleaned) {
			return fmt.Errorf("query contains forbidden keyword: %s", r.desc)
		}
	}
	if setStatement.MatchString(cleaned) {
		return fmt.Errorf("SET statements are not allowed")
	}

	rules, ok := guardRules[k]
	if !ok {
		return nil
	}
	for _, r := range rules.functions {
		if r.re.MatchString(sql) {
			return fmt.Errorf("query contains forbidden pattern: %s", r.desc)
		}
	}
	for _, r := range rules.keywords {
		if r.re.MatchString(cleaned) {
			return fmt.Errorf("query contains forbidden keyword: %s", r.desc)
		}
	}
	if rules.extra != nil {
		return rules.extra(cleaned)
	}
	return nil
}
