package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semaudit/evidence"
)

const sessionSource = `import { db } from "./db";

/**
 * Logs a user in with email and password.
 * audit:security
 */
export function login(email, password) {
  return db.authenticate(email, password);
}

function internalHelper() {}

// Formats a timestamp for display.
export const formatTime = (ts) => new Date(ts).toISOString();

/** Maximum sessions per user. */
export const MAX_SESSIONS = 5;

export const UNDOCUMENTED = true;

/**
 * Manages active sessions.
 */
export class SessionStore {
  /** Revokes every session for a user. */
  revokeAll(userId) {}

  constructor() {}
}
`

func collectTSSource(t *testing.T, filename, source string) []evidence.Fact {
	t.Helper()

	path := filepath.Join(t.TempDir(), filename)
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))

	facts, err := NewTSCollector().CollectFile(context.Background(), path, "web/"+filename, "sessions")
	require.NoError(t, err)
	return facts
}

func TestTSCollector_CollectFile(t *testing.T) {
	facts := collectTSSource(t, "session.ts", sessionSource)
	require.Len(t, facts, 5)

	want := []evidence.Fact{
		{
			FeatureKey:       "sessions",
			Description:      "Logs a user in with email and password",
			Location:         "web/session.ts:7",
			SecurityRelevant: true,
		},
		{
			FeatureKey:  "sessions",
			Description: "Formats a timestamp for display",
			Location:    "web/session.ts:14",
		},
		{
			FeatureKey:  "sessions",
			Description: "Maximum sessions per user",
			Location:    "web/session.ts:17",
		},
		{
			FeatureKey:  "sessions",
			Description: "Manages active sessions",
			Location:    "web/session.ts:24",
		},
		{
			FeatureKey:  "sessions",
			Description: "Revokes every session for a user",
			Location:    "web/session.ts:26",
		},
	}
	assert.Equal(t, want, facts)
}

func TestTSCollector_JavaScript(t *testing.T) {
	facts := collectTSSource(t, "cart.js", `// Adds an item to the cart.
export function addItem(item) {}
`)

	require.Len(t, facts, 1)
	assert.Equal(t, "Adds an item to the cart", facts[0].Description)
	assert.Equal(t, "web/cart.js:2", facts[0].Location)
}

func TestTSCollector_TSX(t *testing.T) {
	facts := collectTSSource(t, "panel.tsx", `// Renders the account settings panel.
export function SettingsPanel() {
  return <section className="settings" />;
}
`)

	require.Len(t, facts, 1)
	assert.Equal(t, "Renders the account settings panel", facts[0].Description)
	assert.Equal(t, "web/panel.tsx:2", facts[0].Location)
}

func TestTSCollector_TypeScriptTypes(t *testing.T) {
	facts := collectTSSource(t, "types.ts", `/** Options for opening a session. */
export interface SessionOptions {
  ttl: number;
}

/** A session identifier. */
export type SessionID = string;

/** Session lifecycle states. */
export enum SessionState {
  Active,
  Expired,
}
`)

	assert.Empty(t, facts, "interfaces, type aliases and enums describe shape, not behavior")
}

func TestTSCollector_PrivateMembers(t *testing.T) {
	facts := collectTSSource(t, "store.ts", `/** Caches session lookups. */
export class Cache {
  /** Returns a cached session. */
  lookup(key: string) {}

  private evict(key: string) {}

  #purge() {}
}
`)

	require.Len(t, facts, 2)
	assert.Equal(t, "Caches session lookups", facts[0].Description)
	assert.Equal(t, "Returns a cached session", facts[1].Description)
}

func TestTSCollector_IgnoreDirective(t *testing.T) {
	facts := collectTSSource(t, "debug.ts", `/**
 * Dumps internal state.
 * audit:ignore
 */
export function dumpState() {}
`)

	assert.Empty(t, facts)
}

func TestTSCollector_FactDirective(t *testing.T) {
	facts := collectTSSource(t, "reset.ts", `/**
 * audit:fact users can reset their password by email
 */
export function startReset(email: string) {}
`)

	require.Len(t, facts, 1)
	assert.Equal(t, "users can reset their password by email", facts[0].Description)
}

func TestTSCollector_SkipsDeclarationFiles(t *testing.T) {
	facts := collectTSSource(t, "globals.d.ts", `/** Ambient session type. */
export function login(): void;
`)

	assert.Empty(t, facts)
}

func TestTSCollector_UndocumentedFunctionHumanized(t *testing.T) {
	facts := collectTSSource(t, "totp.ts", `export function verifyTotpCode(code) {}
`)

	require.Len(t, facts, 1)
	assert.Equal(t, "verify totp code", facts[0].Description)
}
