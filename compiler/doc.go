/*

Process of compilation

Contract Source ->
	parse ->
Syntax Tree ->
	lower ->
Intermediate Representation (ir) ->
	optimize, select ->
Assembly ->
	assemble ->
Bytecode

Intermediate Representation and Assembly can be inputs as well,
entering the pipeline at their stage.

Every contract is compiled in its own worker process:

Compiler.Compile ->
	process.Call ->
`contractc --recursive-process` (Request on stdin) ->
	process.Run ->
Response on stdout, or the error on stderr and non-zero exit

*/
package compiler
