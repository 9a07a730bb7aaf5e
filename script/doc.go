/*
Package script runs Lua scripts for EVAL and EVALSHA with gopher-lua.

A script reaches the keyspace only through redis.call and redis.pcall, which hand command lines to a Caller.
The database implements Caller and runs the whole script under its lock, so a script is atomic.
*/
package script
