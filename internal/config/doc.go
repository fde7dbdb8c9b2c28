// Package config loads hostbridge configuration and resolves its paths.
//
// Configuration is merged from, lowest priority first:
//
//  1. Built-in defaults (see Default)
//  2. ~/.config/hostbridge/hostbridge.{json,jsonc,yaml,yml}
//  3. hostbridge.* in the project directory, then in its .hostbridge/ folder
//  4. The file named by HOSTBRIDGE_CONFIG
//  5. Inline JSON in HOSTBRIDGE_CONFIG_CONTENT
//  6. HOSTBRIDGE_LOG_LEVEL, HOSTBRIDGE_HOST_URL, HOSTBRIDGE_REQUEST_TIMEOUT
//     and HOSTBRIDGE_SERVER_PORT
//
// JSON files may contain comments. Values may reference the environment with
// {env:NAME} and other files with {file:path}; relative file paths resolve
// against the directory of the config file:
//
//	{
//	  // local emulator
//	  "host": {"url": "{env:BRIDGE_URL}", "reconnectDelay": "500ms"},
//	  "request": {"timeout": 5000}
//	}
//
// Durations are Go duration strings or plain milliseconds.
//
// Watch reloads a single file when it changes on disk, which the serve
// command uses to apply log level changes without a restart.
package config
