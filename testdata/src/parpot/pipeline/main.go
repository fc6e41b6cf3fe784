package main

var total int

func load(n int) []int {
	xs := make([]int, n)
	for i := range xs {
		xs[i] = i * i
	}
	return xs
}

func compute(xs []int) int {
	s := 0
	for _, x := range xs {
		s += x
	}
	return s
}

func record(x int) {
	total += x
}

func main() {
	a := load(1000)
	b := load(2000)
	record(compute(a))
	record(compute(b))
	println(total)
}
