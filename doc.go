/*
Command minicc is the command-line front end for package compiler: it reads
a source file, selects a pipeline stage via flags, and writes the result.

	minicc foo.c            compile foo.c, writing foo's assembly to stdout
	minicc -lex foo.c       print foo.c's token stream and stop
	minicc -parse foo.c     print foo.c's parse tree and stop
	minicc -o foo.s foo.c   write assembly to foo.s instead of stdout

See package compiler for the language this accepts and the assembly it
produces.
*/
package main
