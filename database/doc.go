/*
Package database is the command engine of fakedis.

A Server owns the databases selected by SELECT, a pubsub.Hub, a script.Engine and the coordinator of blocked
commands. One mutex guards all of them, so every command is atomic with respect to the others, MULTI/EXEC and
EVAL included.

Server.Exec is the main entry. It resolves the command in cmdTable, checks the emulated version, the arity,
authentication and the subscribed state, queues the command while the connection is in MULTI, then runs it.
Commands touching a single db are DB level ExecFunc, commands needing the connection or the whole server
(AUTH, SELECT, CLIENT, SUBSCRIBE, FLUSHALL...) are SysExecFunc.

[registerCommand] binds a name to:

  - ExecFunc: the function that actually executes the command, such as execHSet
  - PreFunc: returns the keys written and read by the command line, used by WATCH and COMMAND GETKEYS
  - arity, flags and the first server version providing the command

Blocking commands (BLPOP, BLMOVE, BZPOPMIN, XREAD BLOCK...) first try to run. When they cannot, the caller waits
outside the lock until a write signals one of its keys, its timeout expires or the connection goes away.
*/
package database
