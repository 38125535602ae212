package allocator

// EvenSplit divides total across n products in input order.
//
// Every product gets total/n, the first total%n products get one more, and
// any product left at zero is raised to one. The surplus created by that
// floor is removed from the back of the list, one unit per product per pass,
// never taking a product below one.
//
// When total < n the floor cannot hold without breaking the total. In that
// case the first total products get one unit each and the rest get none.
func EvenSplit(total, n int) []int {
	quantities := make([]int, max(n, 0))
	if n <= 0 || total <= 0 {
		return quantities
	}

	base, remainder := total/n, total%n
	for i := range quantities {
		quantities[i] = base
		if i < remainder {
			quantities[i]++
		}
	}

	for i, qty := range quantities {
		if qty < 1 {
			quantities[i] = 1
		}
	}

	surplus := sum(quantities) - total
	for surplus > 0 {
		removed := false
		for i := n - 1; i >= 0 && surplus > 0; i-- {
			if quantities[i] > 1 {
				quantities[i]--
				surplus--
				removed = true
			}
		}
		if !removed {
			return onePerProduct(total, n)
		}
	}

	return quantities
}

// onePerProduct gives one unit to each of the first total products
func onePerProduct(total, n int) []int {
	quantities := make([]int, n)
	for i := 0; i < total && i < n; i++ {
		quantities[i] = 1
	}
	return quantities
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
